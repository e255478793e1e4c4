package feature

import (
	"math"

	"github.com/sells-group/energy-etl/internal/model"
)

// groupKey is the (client_id, ext_dev_ref, date) grouping key. date holds
// the grouping date as Unix nanoseconds so keys compare by instant.
type groupKey struct {
	clientID  string
	extDevRef string
	date      int64
}

type todKey struct {
	groupKey
	tod model.TimeOfDay
}

type seasonKey struct {
	groupKey
	season model.Season
}

// accumulator folds readings into sum, count, max and min.
type accumulator struct {
	sum float64
	n   int
	max float64
	min float64
}

func (a *accumulator) add(v float64) {
	if a.n == 0 {
		a.max, a.min = v, v
	} else {
		a.max = math.Max(a.max, v)
		a.min = math.Min(a.min, v)
	}
	a.sum += v
	a.n++
}

func (a *accumulator) stats() model.AggregateStats {
	if a == nil || a.n == 0 {
		return model.AggregateStats{}
	}
	return model.AggregateStats{
		Sum:  a.sum,
		Mean: a.sum / float64(a.n),
		Max:  a.max,
		Min:  a.min,
	}
}

// aggregates holds the daily, time-of-day and season aggregate tables.
type aggregates struct {
	daily  map[groupKey]*accumulator
	tod    map[todKey]*accumulator
	season map[seasonKey]*accumulator
}

func newAggregates() *aggregates {
	return &aggregates{
		daily:  map[groupKey]*accumulator{},
		tod:    map[todKey]*accumulator{},
		season: map[seasonKey]*accumulator{},
	}
}

func keyOf(o *model.Observation) groupKey {
	return groupKey{clientID: o.ClientID, extDevRef: o.ExtDevRef, date: o.GroupDate.UnixNano()}
}

func (ag *aggregates) add(o *model.Observation) {
	k := keyOf(o)
	fold(ag.daily, k, o.EnergyConsumption)
	fold(ag.tod, todKey{groupKey: k, tod: o.TimeOfDay}, o.EnergyConsumption)
	fold(ag.season, seasonKey{groupKey: k, season: o.Season}, o.EnergyConsumption)
}

func fold[K comparable](m map[K]*accumulator, k K, v float64) {
	acc, ok := m[k]
	if !ok {
		acc = &accumulator{}
		m[k] = acc
	}
	acc.add(v)
}

// join attaches each aggregate row to o by its key. Every key is present
// because the aggregates were built from the same observations.
func (ag *aggregates) join(o *model.Observation) {
	k := keyOf(o)
	o.DailyAgg = ag.daily[k].stats()
	o.TODAgg = ag.tod[todKey{groupKey: k, tod: o.TimeOfDay}].stats()
	o.SeasonAgg = ag.season[seasonKey{groupKey: k, season: o.Season}].stats()
}

// GroupCount returns the number of distinct daily grouping keys.
func (ag *aggregates) GroupCount() int {
	return len(ag.daily)
}
