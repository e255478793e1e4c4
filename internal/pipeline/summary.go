package pipeline

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/energy-etl/internal/config"
	"github.com/sells-group/energy-etl/internal/model"
)

// Summary is the YAML document written after each run when
// etl.summary_path is set.
type Summary struct {
	RunID      string          `yaml:"run_id"`
	Version    string          `yaml:"version"`
	Status     model.RunStatus `yaml:"status"`
	Input      string          `yaml:"input"`
	Output     string          `yaml:"output"`
	AuditPath  string          `yaml:"audit_path,omitempty"`
	StartedAt  time.Time       `yaml:"started_at"`
	FinishedAt time.Time       `yaml:"finished_at"`
	Result     model.RunResult `yaml:"result"`
	Error      string          `yaml:"error,omitempty"`
}

// NewSummary builds the summary of a finished run.
func NewSummary(cfg *config.Config, r *Report, errMsg string) Summary {
	s := Summary{
		RunID:      r.RunID,
		Version:    Version,
		Status:     r.Status,
		Input:      cfg.ETL.Input,
		Output:     cfg.ETL.Output,
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: time.Now().UTC(),
		Result:     r.Result,
		Error:      errMsg,
	}
	if r.Result.DroppedRows > 0 {
		s.AuditPath = cfg.ETL.AuditPath
	}
	return s
}

// WriteSummary writes s to path as YAML.
func WriteSummary(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal summary")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write summary %s", path)
	}
	return nil
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read summary %s", path)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse summary %s", path)
	}
	return &s, nil
}
