package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "energy-etl",
	Short: "Batch ETL for smart-meter energy consumption",
	Long:  "Extracts raw energy consumption records, validates and normalizes them, explodes readings into per-interval observations with calendar features and aggregates, and loads the result.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	// Without a subcommand the job runs according to etl.mode.
	RunE: func(cmd *cobra.Command, _ []string) error {
		return dispatchMode(cmd.Context(), cfg, runOnce, func(ctx context.Context, c *config.Config) error {
			return runScheduled(ctx, c, false)
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
