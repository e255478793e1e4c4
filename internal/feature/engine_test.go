package feature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/energy-etl/internal/model"
)

func rec(client, dev string, date time.Time, res string, readings ...float64) model.Record {
	return model.Record{ClientID: client, ExtDevRef: dev, Date: date, Resolution: res, Readings: readings}
}

func TestExplodeAndAggregate_HourlyScenario(t *testing.T) {
	t.Parallel()

	date := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	obs := ExplodeAndAggregate([]model.Record{rec("A1", "D1", date, "1hour", 10, 20, 30)}, nil)

	require.Len(t, obs, 3)
	for i, o := range obs {
		assert.Equal(t, date.Add(time.Duration(i)*time.Hour), o.Timestamp)
		assert.Equal(t, i, o.Step)
		assert.Equal(t, 60, o.ResolutionMinutes)
		assert.Equal(t, 60.0, o.DailyAgg.Sum)
		assert.Equal(t, 20.0, o.DailyAgg.Mean)
		assert.Equal(t, 30.0, o.DailyAgg.Max)
		assert.Equal(t, 10.0, o.DailyAgg.Min)
		assert.Empty(t, o.LocalDate)
		assert.Equal(t, date, o.GroupDate)
	}
	assert.Equal(t, []float64{10, 20, 30}, []float64{obs[0].EnergyConsumption, obs[1].EnergyConsumption, obs[2].EnergyConsumption})
}

func TestExplodeAndAggregate_RowCountInvariant(t *testing.T) {
	t.Parallel()

	d1 := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2023, time.March, 2, 0, 0, 0, 0, time.UTC)
	records := []model.Record{
		rec("A1", "D1", d1, "15min", 1, 2, 3, 4, 5),
		rec("A1", "D2", d1, "1hour", 7),
		rec("A2", "D1", d2, "daily"),
		rec("A2", "D1", d2.Add(time.Hour), "30min", 2, 2),
	}

	obs := ExplodeAndAggregate(records, nil)
	require.Len(t, obs, 8)

	// Daily sum of every key equals the arithmetic sum of its readings.
	sums := map[string]float64{}
	for _, o := range obs {
		sums[o.ClientID+"|"+o.ExtDevRef+"|"+o.GroupDate.String()] += o.EnergyConsumption
	}
	for _, o := range obs {
		assert.InDelta(t, sums[o.ClientID+"|"+o.ExtDevRef+"|"+o.GroupDate.String()], o.DailyAgg.Sum, 1e-9)
	}
}

func TestExplodeAndAggregate_PreservesOrderAndResolution(t *testing.T) {
	t.Parallel()

	date := time.Date(2023, time.July, 1, 10, 0, 0, 0, time.UTC)
	obs := ExplodeAndAggregate([]model.Record{rec("A1", "D1", date, "15min", 5, 4, 3)}, nil)

	require.Len(t, obs, 3)
	assert.Equal(t, date, obs[0].Timestamp)
	assert.Equal(t, date.Add(15*time.Minute), obs[1].Timestamp)
	assert.Equal(t, date.Add(30*time.Minute), obs[2].Timestamp)
	assert.Equal(t, 4.0, obs[1].EnergyConsumption)
}

func TestExplodeAndAggregate_StepCounterSpansDuplicateKeys(t *testing.T) {
	t.Parallel()

	// Two records with the same (client, device, date) share one running
	// counter, so the second continues where the first stopped.
	date := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	obs := ExplodeAndAggregate([]model.Record{
		rec("A1", "D1", date, "1hour", 1, 1),
		rec("A1", "D1", date, "1hour", 2),
	}, nil)

	require.Len(t, obs, 3)
	assert.Equal(t, 2, obs[2].Step)
	assert.Equal(t, date.Add(2*time.Hour), obs[2].Timestamp)
	assert.Equal(t, 4.0, obs[0].DailyAgg.Sum)
}

func TestExplodeAndAggregate_LocalDateGrouping(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Vilnius")
	require.NoError(t, err)

	// 21:00-00:00 UTC is 23:00-02:00 local (UTC+2), crossing local midnight.
	date := time.Date(2023, time.January, 1, 21, 0, 0, 0, time.UTC)
	obs := New(loc).ExplodeAndAggregate([]model.Record{rec("A1", "D1", date, "1hour", 1, 2, 3, 4)})
	require.Len(t, obs, 4)

	assert.Equal(t, "2023-01-01", obs[0].LocalDate)
	assert.Equal(t, 23, obs[0].Hour)
	assert.Equal(t, 1.0, obs[0].DailyAgg.Sum)

	for _, o := range obs[1:] {
		assert.Equal(t, "2023-01-02", o.LocalDate)
		assert.Equal(t, 9.0, o.DailyAgg.Sum)
		assert.Equal(t, 3.0, o.DailyAgg.Mean)
	}
	assert.Equal(t, 0, obs[1].Hour)

	// Timestamps stay UTC instants.
	assert.Equal(t, time.UTC, obs[1].Timestamp.Location())
	assert.Equal(t, time.Date(2023, time.January, 1, 22, 0, 0, 0, time.UTC), obs[1].Timestamp)
}

func TestExplodeAndAggregate_TimeOfDayAndSeasonAggregates(t *testing.T) {
	t.Parallel()

	// 04:00..07:00 UTC, four hourly readings: night, morning, morning, morning.
	date := time.Date(2023, time.June, 3, 4, 0, 0, 0, time.UTC)
	obs := ExplodeAndAggregate([]model.Record{rec("A1", "D1", date, "1hour", 1, 2, 3, 4)}, nil)
	require.Len(t, obs, 4)

	assert.Equal(t, model.TimeOfDayNight, obs[0].TimeOfDay)
	assert.Equal(t, model.AggregateStats{Sum: 1, Mean: 1, Max: 1, Min: 1}, obs[0].TODAgg)

	for _, o := range obs[1:] {
		assert.Equal(t, model.TimeOfDayMorning, o.TimeOfDay)
		assert.True(t, o.PeakFlag)
		assert.Equal(t, model.AggregateStats{Sum: 9, Mean: 3, Max: 4, Min: 2}, o.TODAgg)
	}

	for _, o := range obs {
		assert.Equal(t, model.SeasonSummer, o.Season)
		assert.Equal(t, model.AggregateStats{Sum: 10, Mean: 2.5, Max: 4, Min: 1}, o.SeasonAgg)
		// 2023-06-03 is a Saturday.
		assert.Equal(t, 5, o.DayOfWeek)
		assert.True(t, o.IsWeekend)
		assert.Equal(t, 6, o.Month)
	}
	assert.False(t, obs[0].PeakFlag)
}

func TestExplodeAndAggregate_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ExplodeAndAggregate(nil, nil))
	date := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, ExplodeAndAggregate([]model.Record{rec("A1", "D1", date, "1hour")}, nil))
}

func TestNewForZone(t *testing.T) {
	t.Parallel()

	e, err := NewForZone("")
	require.NoError(t, err)
	assert.Nil(t, e.loc)

	_, err = NewForZone("Mars/Olympus")
	assert.Error(t, err)
}
