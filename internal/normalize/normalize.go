// Package normalize converts raw input fields into canonical types and
// canonical (UTC) time.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/energy-etl/internal/model"
)

// ErrParse is returned when a date or timestamp value cannot be parsed.
var ErrParse = eris.New("parse error")

// Layouts carrying zone information. Values parsed with these are converted
// to UTC directly.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05 MST",
}

// Layouts without zone information. Values parsed with these are naive
// wall-clock times.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ParseTimestamp parses a raw date value. It returns the parsed time and
// whether it was naive (no zone information). Naive times carry their wall
// clock in the UTC location.
func ParseTimestamp(v any) (time.Time, bool, error) {
	switch x := v.(type) {
	case time.Time:
		return x, false, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, false, eris.Wrap(ErrParse, "null timestamp")
		}
		return *x, false, nil
	case string:
		return parseTimestampString(x)
	case *string:
		if x == nil {
			return time.Time{}, false, eris.Wrap(ErrParse, "null timestamp")
		}
		return parseTimestampString(*x)
	case nil:
		return time.Time{}, false, eris.Wrap(ErrParse, "null timestamp")
	default:
		return time.Time{}, false, eris.Wrapf(ErrParse, "unsupported timestamp type %T", v)
	}
}

func parseTimestampString(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, eris.Wrap(ErrParse, "empty timestamp")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, eris.Wrapf(ErrParse, "unparseable timestamp %q", s)
}

// ToString coerces a raw identifier value to its string form.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// ConvertTypes coerces client_id and ext_dev_ref to strings and parses date.
// It fails with ErrParse on the first unparseable date. Dates are left as
// parsed; LocalToUTC canonicalises them.
func ConvertTypes(t *model.Table) ([]model.Record, error) {
	records := make([]model.Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		date, naive, err := ParseTimestamp(row[model.FieldDate])
		if err != nil {
			return nil, eris.Wrapf(err, "normalize: row %d field %s", i, model.FieldDate)
		}
		records = append(records, model.Record{
			Index:             i,
			ClientID:          ToString(row[model.FieldClientID]),
			ExtDevRef:         ToString(row[model.FieldExtDevRef]),
			Date:              date,
			DateNaive:         naive,
			Resolution:        ToString(row[model.FieldResolution]),
			EnergyConsumption: row[model.FieldEnergyConsumption],
			Raw:               row,
		})
	}
	return records, nil
}
