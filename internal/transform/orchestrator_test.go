package transform

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/energy-etl/internal/model"
	"github.com/sells-group/energy-etl/internal/normalize"
	"github.com/sells-group/energy-etl/internal/validate"
)

type recordingNotifier struct {
	mu     sync.Mutex
	calls  []string
	stages []string
	err    error
	panics bool
}

func (n *recordingNotifier) Notify(_ context.Context, stage, message string) error {
	n.mu.Lock()
	n.calls = append(n.calls, message)
	n.stages = append(n.stages, stage)
	n.mu.Unlock()
	if n.panics {
		panic("smtp exploded")
	}
	return n.err
}

func table(rows ...model.Row) *model.Table {
	return &model.Table{Columns: model.DefaultExpectedFields(), Rows: rows}
}

func row(client, dev string, date any, res string, consumption any) model.Row {
	return model.Row{
		model.FieldClientID:          client,
		model.FieldExtDevRef:         dev,
		model.FieldDate:              date,
		model.FieldResolution:        res,
		model.FieldEnergyConsumption: consumption,
	}
}

func TestTransform_Success(t *testing.T) {
	var stages []Stage
	n := &recordingNotifier{}
	o, err := New(Options{OnStage: func(s Stage) { stages = append(stages, s) }}, n)
	require.NoError(t, err)

	res, err := o.Transform(context.Background(), table(
		row("A1", "D1", "2023-01-01T00:00:00Z", "1hour", []float64{10, 20, 30}),
		row("A1", "D2", "2023-01-01T00:00:00Z", "15min", "not-a-list"),
	))
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageNormalizing, StageValidating, StageFeatureEngineering, StageDone}, stages)
	assert.Equal(t, StageDone, o.State())
	assert.Equal(t, 2, res.InputRows)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, 1, res.Dropped[0].Index)
	require.Len(t, res.Observations, 3)
	assert.InDelta(t, 100, res.Quality.TotalScore, 1e-9)
	assert.Empty(t, n.calls)
}

func TestTransform_NoTimezone(t *testing.T) {
	o, err := New(Options{LocalTimezone: ""}, nil)
	require.NoError(t, err)

	res, err := o.Transform(context.Background(), table(
		row("A1", "D1", "2023-01-01T00:00:00Z", "1hour", "[10, 20, 30]"),
	))
	require.NoError(t, err)
	require.Len(t, res.Observations, 3)

	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, obs := range res.Observations {
		assert.Equal(t, base.Add(time.Duration(i)*time.Hour), obs.Timestamp)
		assert.InDelta(t, 60, obs.DailyAgg.Sum, 1e-9)
	}
}

func TestTransform_NaiveDatesLocalized(t *testing.T) {
	o, err := New(Options{LocalTimezone: "Europe/Vilnius"}, nil)
	require.NoError(t, err)

	res, err := o.Transform(context.Background(), table(
		row("A1", "D1", "2023-01-01 02:00:00", "1hour", []float64{1}),
	))
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	// Vilnius is UTC+2 in winter.
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), res.Observations[0].Timestamp)
	assert.Equal(t, "2023-01-01", res.Observations[0].LocalDate)
}

func TestTransform_StageFailures(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		table   *model.Table
		stage   Stage
		wantErr error
	}{
		{
			name: "missing field",
			table: &model.Table{
				Columns: []string{model.FieldClientID, model.FieldDate},
				Rows:    []model.Row{{model.FieldClientID: "A1"}},
			},
			stage:   StageNormalizing,
			wantErr: validate.ErrSchema,
		},
		{
			name:    "unparseable date",
			table:   table(row("A1", "D1", "yesterday-ish", "1hour", []float64{1})),
			stage:   StageNormalizing,
			wantErr: normalize.ErrParse,
		},
		{
			name:    "nonexistent local time",
			opts:    Options{LocalTimezone: "Europe/Vilnius"},
			table:   table(row("A1", "D1", "2023-03-26 03:30:00", "1hour", []float64{1})),
			stage:   StageNormalizing,
			wantErr: normalize.ErrAmbiguousTime,
		},
		{
			name:    "bad id",
			table:   table(row("bad id!", "D1", "2023-01-01T00:00:00Z", "1hour", []float64{1})),
			stage:   StageValidating,
			wantErr: validate.ErrFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{}
			o, err := New(tt.opts, n)
			require.NoError(t, err)

			res, err := o.Transform(context.Background(), tt.table)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.stage, se.Stage)
			assert.Equal(t, StageFailed, o.State())

			require.Len(t, n.calls, 1)
			assert.Equal(t, Component, n.stages[0])
			assert.Contains(t, n.calls[0], string(tt.stage))
		})
	}
}

func TestTransform_NotifierFailureDoesNotMaskError(t *testing.T) {
	for _, n := range []*recordingNotifier{
		{err: errors.New("mail server down")},
		{panics: true},
	} {
		o, err := New(Options{}, n)
		require.NoError(t, err)

		_, err = o.Transform(context.Background(), table(row("", "D1", "2023-01-01T00:00:00Z", "1hour", []float64{1})))
		require.Error(t, err)
		assert.ErrorIs(t, err, validate.ErrFormat)
		assert.Len(t, n.calls, 1)
	}
}

func TestTransform_AllRowsDropped(t *testing.T) {
	o, err := New(Options{LocalTimezone: ""}, nil)
	require.NoError(t, err)

	res, err := o.Transform(context.Background(), table(
		row("A1", "D1", "2023-01-01T00:00:00Z", "1hour", 42),
	))
	require.NoError(t, err)
	assert.Empty(t, res.Observations)
	assert.Len(t, res.Dropped, 1)
	assert.InDelta(t, 50, res.Quality.TotalScore, 1e-9)
}

func TestNew_InvalidTimezone(t *testing.T) {
	_, err := New(Options{LocalTimezone: "Mars/Olympus"}, nil)
	require.Error(t, err)
}

func TestDropSample(t *testing.T) {
	dropped := make([]model.DroppedRecord, 8)
	for i := range dropped {
		dropped[i].Index = i * 2
	}
	assert.Equal(t, []int{0, 2, 4, 6, 8}, dropSample(dropped))
	assert.Empty(t, dropSample(nil))
}
