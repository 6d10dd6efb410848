// =================================
// File: internal/app/runner.go
// =================================

// Package app wires the KPI pipeline together: config, logging, chain-data
// providers, the revenue engine and the report exporter.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/divvi-xyz/divvi-protocol-sub001/internal/config"
	"github.com/divvi-xyz/divvi-protocol-sub001/internal/export"
	"github.com/divvi-xyz/divvi-protocol-sub001/internal/provider"
	"github.com/divvi-xyz/divvi-protocol-sub001/internal/revenue"
	"github.com/divvi-xyz/divvi-protocol-sub001/internal/utils/logger"
)

// Runner drives one KPI query from configuration to exported report.
type Runner struct {
	logger   *logger.Logger
	cfg      *config.Config
	registry *provider.Registry
}

func NewRunner() *Runner {
	return &Runner{registry: provider.NewRegistry()}
}

// Initialize loads configuration and builds the logger and the provider
// registry. Every configured chain gets a fixture-backed provider from
// <fixture_dir>/<chain>.json; swapping in live providers is a registry
// registration away and touches nothing downstream.
func (r *Runner) Initialize(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	r.cfg = cfg

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.LogFile,
		MaxSize:     100,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: cfg.DebugLogging,
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	r.logger = log

	for _, chain := range cfg.Chains {
		path := filepath.Join(cfg.FixtureDir, revenue.NormalizeTokenID(chain)+".json")
		r.registry.Register(chain, func(*zap.Logger) (provider.ChainData, error) {
			return provider.LoadStatic(path)
		})
	}
	return nil
}

// Run executes the query and exports the per-reserve breakdown.
func (r *Runner) Run(ctx context.Context) (*revenue.Result, error) {
	cfg := r.cfg
	log := r.logger.WithComponent("kpi").With(
		zap.String("user", cfg.User),
		zap.Int64("window_start", cfg.StartTimestamp),
		zap.Int64("window_end", cfg.EndTimestamp))

	w := revenue.Window{Start: cfg.StartTimestamp, End: cfg.EndTimestamp}

	providers := make([]provider.ChainData, 0, len(cfg.Chains))
	for _, chain := range cfg.Chains {
		p, err := r.registry.New(chain, log)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider.WithRetries(p, log, cfg.Retries))
	}

	inputs, err := provider.Collect(ctx, providers, cfg.User, w, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to collect chain data: %w", err)
	}

	agg := revenue.NewAggregator(log, cfg.Workers)
	result, err := agg.Total(ctx, w, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}

	exporter := export.NewReportExporter(log)
	outputPath, err := exporter.ExportResult(result, export.ExportOptions{
		Format:    export.ExportFormat(cfg.OutputFormat),
		User:      cfg.User,
		OutputDir: cfg.OutputDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export report: %w", err)
	}

	log.Info("KPI query complete",
		zap.String("total_usd", result.TotalUSD.String()),
		zap.Int("reserves", len(result.Breakdown)),
		zap.String("report", outputPath))

	return result, nil
}

// Close flushes the logger.
func (r *Runner) Close() {
	if r.logger != nil {
		_ = r.logger.Sync()
	}
}
