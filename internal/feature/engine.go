// Package feature explodes interval readings into timestamped observations,
// derives calendar features and joins daily, time-of-day and season
// aggregates onto each observation.
package feature

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/model"
	"github.com/sells-group/energy-etl/internal/normalize"
)

// Engine runs explode-and-aggregate in a fixed local timezone. A nil location
// groups by the record's UTC date.
type Engine struct {
	loc *time.Location
}

// New creates an Engine for the given location (nil for UTC grouping).
func New(loc *time.Location) *Engine {
	return &Engine{loc: loc}
}

// NewForZone creates an Engine from an IANA zone name. An empty name disables
// local-time grouping.
func NewForZone(zone string) (*Engine, error) {
	loc, err := normalize.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return New(loc), nil
}

// stepKey identifies a running step counter: (client_id, ext_dev_ref, date).
type stepKey struct {
	clientID  string
	extDevRef string
	date      int64
}

// ExplodeAndAggregate turns every record's readings into one Observation per
// reading, in input order, and joins the three aggregate tables onto them.
// The output has exactly one row per reading.
func (e *Engine) ExplodeAndAggregate(records []model.Record) []model.Observation {
	total := 0
	for _, r := range records {
		total += len(r.Readings)
	}
	obs := make([]model.Observation, 0, total)

	steps := map[stepKey]int{}
	for _, r := range records {
		resMin := normalize.ResolutionToMinutes(r.Resolution)
		date := r.Date.UTC()
		sk := stepKey{clientID: r.ClientID, extDevRef: r.ExtDevRef, date: date.UnixNano()}

		for _, reading := range r.Readings {
			step := steps[sk]
			steps[sk] = step + 1

			ts := date.Add(time.Duration(step*resMin) * time.Minute)
			o := model.Observation{
				ClientID:          r.ClientID,
				ExtDevRef:         r.ExtDevRef,
				Date:              date,
				ResolutionMinutes: resMin,
				Step:              step,
				Timestamp:         ts,
				EnergyConsumption: reading,
			}

			wall := ts
			if e.loc != nil {
				wall = normalize.UTCToLocal(ts, e.loc)
				y, m, d := wall.Date()
				o.LocalDate = wall.Format(time.DateOnly)
				o.GroupDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
			} else {
				o.GroupDate = date
			}
			applyCalendar(&o, wall)
			obs = append(obs, o)
		}
	}

	ag := newAggregates()
	for i := range obs {
		ag.add(&obs[i])
	}
	for i := range obs {
		ag.join(&obs[i])
	}

	zap.L().Debug("feature: explode and aggregate",
		zap.Int("records", len(records)),
		zap.Int("observations", len(obs)),
		zap.Int("groups", ag.GroupCount()),
	)
	return obs
}

// ExplodeAndAggregate runs the feature engine for loc (nil for UTC grouping).
func ExplodeAndAggregate(records []model.Record, loc *time.Location) []model.Observation {
	return New(loc).ExplodeAndAggregate(records)
}
