package model

import (
	"time"
)

// RunStatus represents the current state of an ETL run.
type RunStatus string

const (
	RunStatusQueued             RunStatus = "queued"
	RunStatusExtracting         RunStatus = "extracting"
	RunStatusNormalizing        RunStatus = "normalizing"
	RunStatusValidating         RunStatus = "validating"
	RunStatusFeatureEngineering RunStatus = "feature_engineering"
	RunStatusLoading            RunStatus = "loading"
	RunStatusComplete           RunStatus = "complete"
	RunStatusFailed             RunStatus = "failed"
)

// Terminal reports whether no further transitions follow this status.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// Run represents a single execution of the ETL job.
type Run struct {
	ID        string     `json:"id" yaml:"id"`
	Input     string     `json:"input" yaml:"input"`
	Output    string     `json:"output" yaml:"output"`
	Status    RunStatus  `json:"status" yaml:"status"`
	Result    *RunResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error     string     `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
}

// RunResult holds the counts and scores of a finished run.
type RunResult struct {
	Version      string        `json:"version" yaml:"version"`
	InputRows    int           `json:"input_rows" yaml:"input_rows"`
	DroppedRows  int           `json:"dropped_rows" yaml:"dropped_rows"`
	Observations int           `json:"observations" yaml:"observations"`
	Quality      QualityReport `json:"quality" yaml:"quality"`
	Missing      MissingReport `json:"missing" yaml:"missing"`
	DurationMs   int64         `json:"duration_ms" yaml:"duration_ms"`
}
