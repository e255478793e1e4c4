package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/energy-etl/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ETL job once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyRunFlags(cmd, cfg)
		return runOnce(cmd.Context(), cfg)
	},
}

// runOnce executes a single ETL run.
func runOnce(ctx context.Context, c *config.Config) error {
	c.ETL.Mode = "once"
	env, err := newRunEnv(ctx, c)
	if err != nil {
		return err
	}
	defer env.Close()

	_, err = env.runner.Run(ctx)
	return err
}

// dispatchMode picks the once or scheduled entry point from etl.mode.
func dispatchMode(ctx context.Context, c *config.Config, once, scheduled func(context.Context, *config.Config) error) error {
	switch c.ETL.Mode {
	case "once":
		return once(ctx, c)
	case "scheduled":
		return scheduled(ctx, c)
	default:
		return eris.Errorf("etl.mode must be once or scheduled, got %q", c.ETL.Mode)
	}
}

// addRunFlags registers the flags shared by run and schedule.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "input location: local path, http(s):// or ftp:// URL (overrides etl.input)")
	cmd.Flags().String("output", "", "output file for the file sink (overrides etl.output)")
	cmd.Flags().String("audit", "", "file receiving rows dropped during validation (overrides etl.audit_path)")
	cmd.Flags().String("tz", "", "IANA timezone for naive dates and local grouping (overrides etl.local_timezone)")
	cmd.Flags().Bool("no-tz", false, "disable local timezone grouping; naive dates are taken as UTC")
	cmd.Flags().String("summary", "", "write a YAML run summary to this path (overrides etl.summary_path)")
}

// applyRunFlags copies explicitly set flags onto c.
func applyRunFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	set := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	set("input", &c.ETL.Input)
	set("output", &c.ETL.Output)
	set("audit", &c.ETL.AuditPath)
	set("tz", &c.ETL.LocalTimezone)
	set("summary", &c.ETL.SummaryPath)
	if noTZ, _ := flags.GetBool("no-tz"); noTZ {
		c.ETL.LocalTimezone = ""
	}
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
