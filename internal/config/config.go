// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	User           string   `mapstructure:"user"`
	StartTimestamp int64    `mapstructure:"start_timestamp"`
	EndTimestamp   int64    `mapstructure:"end_timestamp"`
	Chains         []string `mapstructure:"chains"`
	FixtureDir     string   `mapstructure:"fixture_dir"`
	Workers        int      `mapstructure:"workers"`
	Retries        int      `mapstructure:"retries"`
	OutputDir      string   `mapstructure:"output_dir"`
	OutputFormat   string   `mapstructure:"output_format"`
	DebugLogging   bool     `mapstructure:"debug_logging"`
	LogFile        string   `mapstructure:"log_file"`
}

const (
	DefaultWorkers      = 5
	DefaultRetries      = 3
	DefaultOutputDir    = "reports"
	DefaultOutputFormat = "csv"
	DefaultLogFile      = "kpi.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"workers":       DefaultWorkers,
		"retries":       DefaultRetries,
		"output_dir":    DefaultOutputDir,
		"output_format": DefaultOutputFormat,
		"log_file":      DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.User == "" {
		return errors.New("missing user in configuration")
	}
	if cfg.StartTimestamp >= cfg.EndTimestamp {
		return errors.New("start_timestamp must precede end_timestamp")
	}
	if len(cfg.Chains) == 0 {
		return errors.New("chains is empty")
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	switch cfg.OutputFormat {
	case "csv", "json":
	default:
		return errors.New("output_format must be csv or json")
	}
	if cfg.FixtureDir == "" {
		return errors.New("missing fixture_dir in configuration")
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.Workers <= 0 {
		return errors.New("invalid workers count")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("DIVVI_KPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envUser := v.GetString("USER_ADDRESS")
	if envUser != "" {
		cfg.User = envUser
	}

	envChains := v.GetString("CHAINS")
	if envChains != "" {
		parts := strings.Split(envChains, ",")
		var clean []string
		for _, part := range parts {
			if s := strings.TrimSpace(part); s != "" {
				clean = append(clean, s)
			}
		}
		if len(clean) > 0 {
			cfg.Chains = clean
		}
	}
	return nil
}
