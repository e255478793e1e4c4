package model

import "sort"

// QualityReport is the advisory 0-100 data quality score of a record set.
type QualityReport struct {
	SchemaScore       float64 `json:"schema_completeness_score" yaml:"schema_completeness_score"`
	CompletenessScore float64 `json:"data_completeness_score" yaml:"data_completeness_score"`
	TotalScore        float64 `json:"total_score" yaml:"total_score"`
}

// MissingReport counts null cells per field.
type MissingReport struct {
	Counts map[string]int `json:"counts" yaml:"counts"`
}

// Total returns the number of missing cells across all fields.
func (m MissingReport) Total() int {
	n := 0
	for _, c := range m.Counts {
		n += c
	}
	return n
}

// Any reports whether at least one cell is missing.
func (m MissingReport) Any() bool {
	return m.Total() > 0
}

// Fields returns the fields with at least one missing cell, sorted.
func (m MissingReport) Fields() []string {
	var out []string
	for f, c := range m.Counts {
		if c > 0 {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
