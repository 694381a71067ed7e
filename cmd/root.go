// Package cmd defines the CLI commands for the pricescout executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricescout/internal/clock/system"
	"pricescout/internal/config"
	"pricescout/internal/extractor"
	"pricescout/internal/id/uuid"
	"pricescout/internal/jobs"
	"pricescout/internal/logging"
	"pricescout/internal/metrics"
)

var cfgFile string

// runtime bundles the services shared by every subcommand.
type runtime struct {
	cfg     config.Config
	logger  *zap.Logger
	manager *jobs.Manager
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	metrics.Init()

	manager := jobs.NewManager(cfg, extractor.NewRegistry(), uuid.New(), system.Clock{}, logger)
	return &runtime{cfg: cfg, logger: logger, manager: manager}, nil
}

func (rt *runtime) close() {
	_ = rt.logger.Sync()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricescout",
		Short: "Monitors competitor prices for the company's product catalog.",
		Long: `pricescout crawls competitor storefronts for the products in the
per-site input lists, compares every competitor's total price against the
company's own channel, and reports listings that undercut it.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pricescout: %v\n", err)
		os.Exit(1)
	}
}
