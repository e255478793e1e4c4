package normalize

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/energy-etl/internal/model"
)

// ErrAmbiguousTime is returned for a local time that falls in a DST gap
// (nonexistent) or overlap (ambiguous).
var ErrAmbiguousTime = eris.New("ambiguous local time")

// LoadLocation resolves an IANA zone name. An empty name yields a nil
// location, meaning no local timezone is configured.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: load timezone %q", name)
	}
	return loc, nil
}

// LocalToUTC interprets a naive timestamp as wall-clock time in loc and
// converts it to UTC. Zoned timestamps are converted directly. A nil loc
// treats naive timestamps as UTC. Local times in a DST gap or overlap are
// rejected with ErrAmbiguousTime.
func LocalToUTC(t time.Time, naive bool, field string, loc *time.Location) (time.Time, error) {
	if !naive {
		return t.UTC(), nil
	}
	if loc == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	}

	candidates := wallClockInstants(t, loc)
	switch len(candidates) {
	case 1:
		return candidates[0].UTC(), nil
	case 0:
		return time.Time{}, eris.Wrapf(ErrAmbiguousTime, "%s: %s does not exist in %s", field, t.Format("2006-01-02 15:04:05"), loc)
	default:
		return time.Time{}, eris.Wrapf(ErrAmbiguousTime, "%s: %s is ambiguous in %s", field, t.Format("2006-01-02 15:04:05"), loc)
	}
}

// UTCToLocal converts an instant to wall-clock time in loc.
func UTCToLocal(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t.UTC()
	}
	return t.In(loc)
}

// wallClockInstants returns every instant whose wall clock in loc equals the
// wall clock of naive. Zone offsets are sampled around the instant so both
// sides of a transition are considered.
func wallClockInstants(naive time.Time, loc *time.Location) []time.Time {
	wall := time.Date(naive.Year(), naive.Month(), naive.Day(), naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(), time.UTC)

	seen := map[int]bool{}
	var out []time.Time
	for _, probe := range []time.Duration{-24 * time.Hour, -12 * time.Hour, 0, 12 * time.Hour, 24 * time.Hour} {
		_, offset := wall.Add(probe).In(loc).Zone()
		if seen[offset] {
			continue
		}
		seen[offset] = true

		candidate := wall.Add(-time.Duration(offset) * time.Second).In(loc)
		if sameWallClock(candidate, wall) {
			out = append(out, candidate)
		}
	}
	return out
}

func sameWallClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second() &&
		a.Nanosecond() == b.Nanosecond()
}

// LocalizeDates canonicalises every record's date to UTC, interpreting naive
// dates in loc.
func LocalizeDates(records []model.Record, loc *time.Location) error {
	for i := range records {
		utc, err := LocalToUTC(records[i].Date, records[i].DateNaive, model.FieldDate, loc)
		if err != nil {
			return eris.Wrapf(err, "normalize: row %d", records[i].Index)
		}
		records[i].Date = utc
		records[i].DateNaive = false
	}
	return nil
}
