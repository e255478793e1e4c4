package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/config"
)

// minFinishedRuns is the number of finished runs needed before the failure
// rate is judged.
const minFinishedRuns = 5

// Evaluate returns the failure-rate alerts triggered by snap.
func Evaluate(snap *RunSnapshot, threshold float64) []Alert {
	finished := snap.Complete + snap.Failed
	if finished < minFinishedRuns || snap.FailRate <= threshold {
		return nil
	}
	return []Alert{{
		Type:     AlertFailureRate,
		Severity: "high",
		Message: fmt.Sprintf(
			"ETL failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
			snap.FailRate*100, threshold*100, snap.Failed, finished, snap.LookbackHours,
		),
		Details: map[string]any{
			"failure_rate": snap.FailRate,
			"threshold":    threshold,
			"failed":       snap.Failed,
			"finished":     finished,
		},
		Timestamp: time.Now().UTC(),
	}}
}

// Checker runs periodic failure-rate checks in the background.
type Checker struct {
	collector *Collector
	notifier  Notifier
	cfg       config.MonitoringConfig
}

// NewChecker creates a background failure-rate checker.
func NewChecker(collector *Collector, notifier Notifier, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting failure-rate checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("failure-rate checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check collects one snapshot and notifies for every triggered alert. It
// returns the number of alerts triggered.
func (c *Checker) Check(ctx context.Context) int {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: failed to collect run metrics", zap.Error(err))
		return 0
	}

	alerts := Evaluate(snap, c.cfg.FailureRateThreshold)
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered")
		return 0
	}

	for _, a := range alerts {
		if err := c.notifier.Notify(ctx, "Scheduler", a.Message); err != nil {
			log.Error("monitoring: failed to send alert", zap.String("type", string(a.Type)), zap.Error(err))
		}
	}
	log.Info("monitoring: alert check complete", zap.Int("alerts_triggered", len(alerts)))
	return len(alerts)
}
