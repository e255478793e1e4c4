package validate

import (
	"github.com/sells-group/energy-etl/internal/model"
)

// Score weights of the two quality components.
const (
	SchemaWeight       = 50.0
	CompletenessWeight = 50.0
)

// CheckMissingValues counts null cells per column. It is purely
// observational: nothing is mutated or dropped.
func CheckMissingValues(columns []string, rows []model.Row) model.MissingReport {
	counts := make(map[string]int, len(columns))
	for _, c := range columns {
		counts[c] = 0
	}
	for _, row := range rows {
		for _, c := range columns {
			if model.IsMissing(row[c]) {
				counts[c]++
			}
		}
	}
	return model.MissingReport{Counts: counts}
}

// ComputeQualityScore scores a record set out of 100: half for the share of
// expected fields present in the shape, half for the share of non-null cells.
// An empty record set has a completeness score of 0. The score is advisory.
func (v *Validator) ComputeQualityScore(columns []string, rows []model.Row) model.QualityReport {
	present := 0
	shape := make(map[string]bool, len(columns))
	for _, c := range columns {
		shape[c] = true
	}
	for _, f := range v.expected {
		if shape[f] {
			present++
		}
	}

	var report model.QualityReport
	if len(v.expected) > 0 {
		report.SchemaScore = SchemaWeight * float64(present) / float64(len(v.expected))
	}

	totalCells := len(rows) * len(columns)
	if totalCells > 0 {
		missing := CheckMissingValues(columns, rows).Total()
		report.CompletenessScore = CompletenessWeight * (1 - float64(missing)/float64(totalCells))
	}

	report.TotalScore = report.SchemaScore + report.CompletenessScore
	return report
}
