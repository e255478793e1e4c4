// Package pipeline runs the ETL job: extract the raw record set, transform
// it into observations and load them, recording the run and notifying once
// on failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/energy-etl/internal/config"
	"github.com/sells-group/energy-etl/internal/model"
	"github.com/sells-group/energy-etl/internal/monitoring"
	"github.com/sells-group/energy-etl/internal/resilience"
	"github.com/sells-group/energy-etl/internal/sink"
	"github.com/sells-group/energy-etl/internal/store"
	"github.com/sells-group/energy-etl/internal/transform"
	"github.com/sells-group/energy-etl/internal/validate"
)

// Version is logged at the start of every run and stored with its result.
const Version = "1.0.0"

// Stage names used in failure notifications.
const (
	StageExtract = "Extract"
	StageLoad    = "Load"
	StageJob     = "ETL Job"
)

// Extractor reads the raw record set at a location.
type Extractor interface {
	ReadTable(ctx context.Context, location string) (*model.Table, error)
}

// AuditFunc archives dropped rows to a local file.
type AuditFunc func(path, format string, dropped []model.DroppedRecord) error

// Deps are the collaborators of a Runner. Store, Notifier and Metrics may be
// nil.
type Deps struct {
	Source   Extractor
	Sink     sink.ObservationWriter
	Audit    AuditFunc
	Store    store.Store
	Notifier monitoring.Notifier
	Metrics  *monitoring.Metrics
}

// Report describes a finished run.
type Report struct {
	RunID     string
	Status    model.RunStatus
	StartedAt time.Time
	Result    model.RunResult
}

// Runner executes ETL runs. A Runner may be reused across scheduled runs but
// not concurrently.
type Runner struct {
	cfg   *config.Config
	deps  Deps
	retry resilience.RetryConfig
}

// NewRunner creates a Runner.
func NewRunner(cfg *config.Config, deps Deps) *Runner {
	if deps.Audit == nil {
		deps.Audit = sink.WriteDropped
	}
	if deps.Notifier == nil {
		deps.Notifier = monitoring.LogNotifier{}
	}
	return &Runner{
		cfg:   cfg,
		deps:  deps,
		retry: resilience.FromConfig(cfg.Retry.MaxAttempts, cfg.Retry.DelaySecs),
	}
}

// run carries per-run state.
type run struct {
	*Runner
	id       string
	log      *zap.Logger
	notifier *monitoring.Once
	report   *Report
}

// Run executes one extract, transform and load cycle. On failure the run is
// recorded as failed, exactly one notification is sent and the error is
// returned.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	rn := &run{
		Runner:   r,
		notifier: monitoring.NewOnce(r.deps.Notifier),
		report:   &Report{StartedAt: start, Result: model.RunResult{Version: Version}},
	}
	rn.id = rn.createRun(ctx)
	rn.report.RunID = rn.id
	rn.log = zap.L().With(zap.String("run_id", rn.id))

	rn.log.Info("pipeline: running ETL",
		zap.String("version", Version),
		zap.String("input", r.cfg.ETL.Input),
		zap.String("output", r.cfg.ETL.Output),
	)
	monitoring.LogSystemMetrics(ctx)

	table, err := rn.extract(ctx)
	if err != nil {
		return rn.report, rn.fail(ctx, StageExtract, err)
	}
	rn.report.Result.InputRows = table.Len()

	res, err := rn.transform(ctx, table)
	if err != nil {
		return rn.report, rn.fail(ctx, transform.Component, err)
	}
	rn.report.Result.DroppedRows = len(res.Dropped)
	rn.report.Result.Observations = len(res.Observations)
	rn.report.Result.Quality = res.Quality
	rn.report.Result.Missing = res.Missing

	if err := rn.load(ctx, res); err != nil {
		return rn.report, rn.fail(ctx, StageLoad, err)
	}

	rn.report.Status = model.RunStatusComplete
	rn.report.Result.DurationMs = time.Since(start).Milliseconds()
	if r.deps.Store != nil {
		if err := r.deps.Store.CompleteRun(ctx, rn.id, &rn.report.Result); err != nil {
			rn.log.Warn("pipeline: failed to record completed run", zap.Error(err))
		}
	}
	rn.finish(ctx, "")
	rn.log.Info("pipeline: ETL job completed successfully",
		zap.Int("input_rows", rn.report.Result.InputRows),
		zap.Int("dropped_rows", rn.report.Result.DroppedRows),
		zap.Int("observations", rn.report.Result.Observations),
		zap.Float64("quality_score", rn.report.Result.Quality.TotalScore),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rn.report, nil
}

func (rn *run) createRun(ctx context.Context) string {
	if rn.deps.Store == nil {
		return uuid.NewString()
	}
	created, err := rn.deps.Store.CreateRun(ctx, rn.cfg.ETL.Input, rn.cfg.ETL.Output)
	if err != nil {
		zap.L().Warn("pipeline: failed to record run, continuing without history", zap.Error(err))
		return uuid.NewString()
	}
	return created.ID
}

func (rn *run) setStatus(ctx context.Context, status model.RunStatus) {
	rn.report.Status = status
	if rn.deps.Store == nil {
		return
	}
	if err := rn.deps.Store.UpdateRunStatus(ctx, rn.id, status); err != nil {
		rn.log.Warn("pipeline: failed to update run status",
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (rn *run) extract(ctx context.Context) (*model.Table, error) {
	rn.setStatus(ctx, model.RunStatusExtracting)
	start := time.Now()
	defer rn.observeStage("extract", start)

	input := rn.cfg.ETL.Input
	if input == "" {
		return nil, eris.New("pipeline: no input location configured")
	}
	rn.log.Info("pipeline: starting extraction", zap.String("input", input))

	cfg := rn.retry
	cfg.OnRetry = resilience.RetryLogger(StageExtract, "read "+input)
	table, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*model.Table, error) {
		return rn.deps.Source.ReadTable(ctx, input)
	})
	if err != nil {
		return nil, err
	}

	if err := validate.New(rn.cfg.ETL.ExpectedFields).ValidateSchema(table); err != nil {
		return nil, err
	}
	rn.log.Info("pipeline: extraction completed",
		zap.Int("rows", table.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return table, nil
}

func (rn *run) transform(ctx context.Context, table *model.Table) (*transform.Result, error) {
	start := time.Now()
	defer rn.observeStage("transform", start)

	orch, err := transform.New(transform.Options{
		LocalTimezone:  rn.cfg.ETL.LocalTimezone,
		ExpectedFields: rn.cfg.ETL.ExpectedFields,
		OnStage: func(s transform.Stage) {
			if status, ok := stageStatus[s]; ok {
				rn.setStatus(ctx, status)
			}
		},
	}, rn.notifier)
	if err != nil {
		return nil, err
	}
	return orch.Transform(ctx, table)
}

// stageStatus maps transform stages onto run statuses.
var stageStatus = map[transform.Stage]model.RunStatus{
	transform.StageNormalizing:        model.RunStatusNormalizing,
	transform.StageValidating:         model.RunStatusValidating,
	transform.StageFeatureEngineering: model.RunStatusFeatureEngineering,
}

// load writes the observations and, when rows were dropped, the audit file.
// Both writes run concurrently and are retried independently.
func (rn *run) load(ctx context.Context, res *transform.Result) error {
	rn.setStatus(ctx, model.RunStatusLoading)
	start := time.Now()
	defer rn.observeStage("load", start)
	rn.log.Info("pipeline: starting load", zap.String("output", rn.cfg.ETL.Output))

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cfg := rn.retry
		cfg.OnRetry = resilience.RetryLogger(StageLoad, "write observations")
		return resilience.Do(gCtx, cfg, func(ctx context.Context) error {
			return rn.deps.Sink.WriteObservations(ctx, res.Observations)
		})
	})

	if audit := rn.cfg.ETL.AuditPath; audit != "" && len(res.Dropped) > 0 {
		g.Go(func() error {
			cfg := rn.retry
			cfg.OnRetry = resilience.RetryLogger(StageLoad, "write audit")
			err := resilience.Do(gCtx, cfg, func(context.Context) error {
				return rn.deps.Audit(audit, "", res.Dropped)
			})
			return eris.Wrapf(err, "pipeline: archive dropped rows to %s", audit)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	rn.log.Info("pipeline: load completed", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (rn *run) observeStage(stage string, start time.Time) {
	if rn.deps.Metrics != nil {
		rn.deps.Metrics.ObserveStage(stage, start)
	}
}

// fail records the failed run and sends the run's single notification.
// Transform failures were already reported by the orchestrator.
func (rn *run) fail(ctx context.Context, stage string, err error) error {
	rn.report.Status = model.RunStatusFailed
	rn.report.Result.DurationMs = time.Since(rn.report.StartedAt).Milliseconds()
	rn.log.Error("pipeline: ETL job failed", zap.String("stage", stage), zap.Error(err))

	var se *transform.StageError
	if !errors.As(err, &se) {
		msg := fmt.Sprintf("%s failed: %v", stage, err)
		if nerr := monitoring.SafeNotify(ctx, rn.notifier, stage, msg); nerr != nil {
			rn.log.Warn("pipeline: failure notification not sent", zap.Error(nerr))
		}
	}

	if rn.deps.Store != nil {
		if serr := rn.deps.Store.FailRun(ctx, rn.id, &rn.report.Result, err.Error()); serr != nil {
			rn.log.Warn("pipeline: failed to record failed run", zap.Error(serr))
		}
	}
	rn.finish(ctx, err.Error())
	return eris.Wrapf(err, "pipeline: %s", stage)
}

// finish updates metrics and writes the optional summary for a terminal run.
func (rn *run) finish(ctx context.Context, errMsg string) {
	if m := rn.deps.Metrics; m != nil {
		res := rn.report.Result
		m.RowsRead.Add(float64(res.InputRows))
		m.RowsDropped.Add(float64(res.DroppedRows))
		m.ObservationsOut.Add(float64(res.Observations))
		if rn.report.Status == model.RunStatusComplete {
			m.QualityScore.Set(res.Quality.TotalScore)
		}
		m.RunFinished(string(rn.report.Status))
		if err := m.Push(ctx, rn.cfg.Metrics.PushgatewayURL, rn.cfg.Metrics.Job); err != nil {
			rn.log.Warn("pipeline: metrics push failed", zap.Error(err))
		}
	}

	if path := rn.cfg.ETL.SummaryPath; path != "" {
		if err := WriteSummary(path, NewSummary(rn.cfg, rn.report, errMsg)); err != nil {
			rn.log.Warn("pipeline: failed to write run summary", zap.Error(err))
		}
	}
}
