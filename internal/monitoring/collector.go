package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/energy-etl/internal/model"
	"github.com/sells-group/energy-etl/internal/store"
)

// RunSnapshot holds a point-in-time view of recent run health.
type RunSnapshot struct {
	Total        int     `json:"total"`
	Complete     int     `json:"complete"`
	Failed       int     `json:"failed"`
	InProgress   int     `json:"in_progress"`
	FailRate     float64 `json:"fail_rate"`
	AvgQuality   float64 `json:"avg_quality"`
	RowsDropped  int     `json:"rows_dropped"`
	Observations int     `json:"observations"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector needs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector summarises run history.
type Collector struct {
	runs RunLister
}

// NewCollector creates a new run collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs}
}

// Collect gathers a snapshot of runs created within the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*RunSnapshot, error) {
	now := time.Now().UTC()
	snap := &RunSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}
	return Summarize(runs, snap), nil
}

// Summarize folds runs into snap and returns it.
func Summarize(runs []model.Run, snap *RunSnapshot) *RunSnapshot {
	if snap == nil {
		snap = &RunSnapshot{CollectedAt: time.Now().UTC()}
	}
	snap.Total = len(runs)

	var totalQuality float64
	var scored int
	for _, r := range runs {
		switch {
		case r.Status == model.RunStatusComplete:
			snap.Complete++
		case r.Status == model.RunStatusFailed:
			snap.Failed++
		default:
			snap.InProgress++
		}
		if r.Result != nil {
			snap.RowsDropped += r.Result.DroppedRows
			snap.Observations += r.Result.Observations
			if r.Status == model.RunStatusComplete {
				totalQuality += r.Result.Quality.TotalScore
				scored++
			}
		}
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	if scored > 0 {
		snap.AvgQuality = totalQuality / float64(scored)
	}
	return snap
}
