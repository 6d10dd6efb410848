// ====================================
// File: cmd/kpi/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/divvi-xyz/divvi-protocol-sub001/internal/app"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap logger; the runner builds the real one from config.
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	logger.Info("Starting revenue KPI query")

	runner := app.NewRunner()
	if err := runner.Initialize(*configPath); err != nil {
		logger.Error("Failed to initialize", zap.Error(err))
		os.Exit(1)
	}
	defer runner.Close()

	result, err := runner.Run(ctx)
	if err != nil {
		logger.Error("KPI query failed", zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("total protocol revenue: %s USD\n", result.TotalUSD)
}
