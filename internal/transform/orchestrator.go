// Package transform sequences the normalizer, validator and feature engine
// over one in-memory record set.
package transform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/feature"
	"github.com/sells-group/energy-etl/internal/model"
	"github.com/sells-group/energy-etl/internal/monitoring"
	"github.com/sells-group/energy-etl/internal/normalize"
	"github.com/sells-group/energy-etl/internal/validate"
)

// Stage is a state of the transform state machine.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageNormalizing        Stage = "normalizing"
	StageValidating         Stage = "validating"
	StageFeatureEngineering Stage = "feature_engineering"
	StageDone               Stage = "done"
	StageFailed             Stage = "failed"
)

// Component is the stage name reported to the notifier for transform failures.
const Component = "Transform"

// dropSampleSize bounds how many dropped row indexes are logged.
const dropSampleSize = 5

// Notifier receives at most one failure notification per run.
type Notifier interface {
	Notify(ctx context.Context, stage, message string) error
}

// StageError tags a fatal transform error with the stage that raised it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("transform: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options configures an Orchestrator.
type Options struct {
	// LocalTimezone is the IANA zone used to interpret naive dates and to
	// group observations by local calendar date. Empty disables both.
	LocalTimezone string

	// ExpectedFields is the required schema. Defaults to the five record fields.
	ExpectedFields []string

	// OnStage is called on every state transition.
	OnStage func(Stage)
}

// Result is the output of a successful transform.
type Result struct {
	Observations []model.Observation
	Dropped      []model.DroppedRecord
	Quality      model.QualityReport
	Missing      model.MissingReport
	InputRows    int
}

// Orchestrator runs Normalizing -> Validating -> FeatureEngineering -> Done.
// Any stage failure moves it to Failed, notifies once and returns a
// *StageError. It never retries.
type Orchestrator struct {
	loc       *time.Location
	validator *validate.Validator
	engine    *feature.Engine
	notifier  Notifier
	onStage   func(Stage)

	mu    sync.Mutex
	state Stage
}

// New creates an Orchestrator. The notifier may be nil.
func New(opts Options, notifier Notifier) (*Orchestrator, error) {
	loc, err := normalize.LoadLocation(opts.LocalTimezone)
	if err != nil {
		return nil, eris.Wrap(err, "transform: load timezone")
	}
	fields := opts.ExpectedFields
	if len(fields) == 0 {
		fields = model.DefaultExpectedFields()
	}
	return &Orchestrator{
		loc:       loc,
		validator: validate.New(fields),
		engine:    feature.New(loc),
		notifier:  notifier,
		onStage:   opts.OnStage,
		state:     StageIdle,
	}, nil
}

// State returns the current stage.
func (o *Orchestrator) State() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) enter(s Stage) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	if o.onStage != nil {
		o.onStage(s)
	}
}

// Transform runs every stage over t. The input table is not mutated.
func (o *Orchestrator) Transform(ctx context.Context, t *model.Table) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "transform"))
	log.Info("transform: starting", zap.Int("rows", t.Len()))

	res := &Result{InputRows: t.Len()}

	// Normalizing
	o.enter(StageNormalizing)
	stageStart := time.Now()
	if err := o.validator.ValidateSchema(t); err != nil {
		return nil, o.fail(ctx, StageNormalizing, err)
	}
	records, err := normalize.ConvertTypes(t)
	if err != nil {
		return nil, o.fail(ctx, StageNormalizing, err)
	}
	if err := normalize.LocalizeDates(records, o.loc); err != nil {
		return nil, o.fail(ctx, StageNormalizing, err)
	}
	log.Info("transform: types converted and dates in UTC",
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(stageStart)),
	)

	// Validating
	o.enter(StageValidating)
	stageStart = time.Now()
	if err := validate.ValidateIDs(records); err != nil {
		return nil, o.fail(ctx, StageValidating, err)
	}
	cr := validate.NormalizeEnergyConsumption(records)
	res.Dropped = cr.Dropped
	if cr.DroppedCount() > 0 {
		log.Warn("transform: dropped rows with invalid energy_consumption",
			zap.Int("dropped", cr.DroppedCount()),
			zap.Ints("sample_rows", dropSample(cr.Dropped)),
		)
	}

	rows := make([]model.Row, len(cr.Clean))
	for i, r := range cr.Clean {
		rows[i] = r.Raw
	}
	res.Missing = validate.CheckMissingValues(t.Columns, rows)
	if res.Missing.Any() {
		log.Warn("transform: missing values", zap.Any("counts", res.Missing.Counts))
	}
	res.Quality = o.validator.ComputeQualityScore(t.Columns, rows)
	log.Info("transform: validated",
		zap.Int("clean", cr.CleanCount()),
		zap.Int("dropped", cr.DroppedCount()),
		zap.Float64("quality_score", res.Quality.TotalScore),
		zap.Duration("elapsed", time.Since(stageStart)),
	)

	// FeatureEngineering
	o.enter(StageFeatureEngineering)
	stageStart = time.Now()
	res.Observations = o.engine.ExplodeAndAggregate(cr.Clean)
	log.Info("transform: features engineered",
		zap.Int("observations", len(res.Observations)),
		zap.Duration("elapsed", time.Since(stageStart)),
	)

	o.enter(StageDone)
	log.Info("transform: complete", zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (o *Orchestrator) fail(ctx context.Context, stage Stage, err error) error {
	o.enter(StageFailed)
	se := &StageError{Stage: stage, Err: err}
	zap.L().Error("transform: stage failed", zap.String("stage", string(stage)), zap.Error(err))
	o.notify(ctx, se)
	return se
}

// notify never lets a notifier failure or panic escape.
func (o *Orchestrator) notify(ctx context.Context, se *StageError) {
	if o.notifier == nil {
		return
	}
	if err := monitoring.SafeNotify(ctx, o.notifier, Component, se.Error()); err != nil {
		zap.L().Warn("transform: failure notification not sent", zap.Error(err))
	}
}

func dropSample(dropped []model.DroppedRecord) []int {
	n := min(len(dropped), dropSampleSize)
	out := make([]int, n)
	for i := range n {
		out[i] = dropped[i].Index
	}
	return out
}
