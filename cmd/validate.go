package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/energy-etl/internal/config"
	"github.com/sells-group/energy-etl/internal/model"
	"github.com/sells-group/energy-etl/internal/pipeline"
	"github.com/sells-group/energy-etl/internal/resilience"
	"github.com/sells-group/energy-etl/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check an input's schema and data quality without writing output",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if input, _ := cmd.Flags().GetString("input"); input != "" {
			cfg.ETL.Input = input
		}
		report, err := runValidate(cmd.Context(), cfg, newSource(cfg))
		if report != nil {
			if werr := writeValidateReport(os.Stdout, report); werr != nil {
				return werr
			}
		}
		return err
	},
}

// validateReport is printed by the validate command.
type validateReport struct {
	Input   string              `yaml:"input"`
	Rows    int                 `yaml:"rows"`
	Columns []string            `yaml:"columns"`
	Schema  string              `yaml:"schema"`
	Quality model.QualityReport `yaml:"quality"`
	Missing model.MissingReport `yaml:"missing"`
}

// runValidate extracts the input and scores it. A schema failure still
// returns the report alongside the error.
func runValidate(ctx context.Context, c *config.Config, src pipeline.Extractor) (*validateReport, error) {
	if c.ETL.Input == "" {
		return nil, eris.New("validate: no input location configured")
	}
	retry := resilience.FromConfig(c.Retry.MaxAttempts, c.Retry.DelaySecs)
	retry.OnRetry = resilience.RetryLogger(pipeline.StageExtract, "read "+c.ETL.Input)
	t, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.Table, error) {
		return src.ReadTable(ctx, c.ETL.Input)
	})
	if err != nil {
		return nil, eris.Wrap(err, "validate: extract")
	}

	v := validate.New(c.ETL.ExpectedFields)
	report := &validateReport{
		Input:   c.ETL.Input,
		Rows:    t.Len(),
		Columns: t.Columns,
		Schema:  "ok",
		Quality: v.ComputeQualityScore(t.Columns, t.Rows),
		Missing: validate.CheckMissingValues(t.Columns, t.Rows),
	}
	if err := v.ValidateSchema(t); err != nil {
		report.Schema = err.Error()
		return report, err
	}
	return report, nil
}

func writeValidateReport(w io.Writer, r *validateReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "validate: encode report")
	}
	return enc.Close()
}

func init() {
	validateCmd.Flags().String("input", "", "input location (overrides etl.input)")
	rootCmd.AddCommand(validateCmd)
}
