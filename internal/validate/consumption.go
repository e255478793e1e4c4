package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/energy-etl/internal/model"
)

// ErrInvalidConsumption marks a row whose energy_consumption cannot be coerced
// to a sequence of numbers. It is non-fatal: the row is dropped and archived.
var ErrInvalidConsumption = eris.New("invalid energy_consumption format")

// ConsumptionResult is the outcome of NormalizeEnergyConsumption.
type ConsumptionResult struct {
	Clean   []model.Record
	Dropped []model.DroppedRecord
}

// CleanCount returns the number of retained records.
func (r ConsumptionResult) CleanCount() int { return len(r.Clean) }

// DroppedCount returns the number of dropped records.
func (r ConsumptionResult) DroppedCount() int { return len(r.Dropped) }

// NormalizeEnergyConsumption coerces every record's energy_consumption to an
// ordered sequence of floats. Values that are already numeric sequences, or
// strings encoding a literal list, are kept; every other record is moved to
// the dropped set. Input records are not mutated.
func NormalizeEnergyConsumption(records []model.Record) ConsumptionResult {
	res := ConsumptionResult{Clean: make([]model.Record, 0, len(records))}
	for _, r := range records {
		readings, err := CoerceReadings(r.EnergyConsumption)
		if err != nil {
			res.Dropped = append(res.Dropped, model.DroppedRecord{
				Index:             r.Index,
				ClientID:          r.ClientID,
				ExtDevRef:         r.ExtDevRef,
				Date:              r.Date,
				Resolution:        r.Resolution,
				EnergyConsumption: fmt.Sprint(r.EnergyConsumption),
				Reason:            err.Error(),
			})
			continue
		}
		clean := r
		clean.Readings = readings
		res.Clean = append(res.Clean, clean)
	}
	return res
}

// CoerceReadings converts a raw energy_consumption value to floats. It
// accepts numeric slices and arrays, []any of numbers, and strings holding a
// bracketed literal list such as "[1, 2.5, 3]".
func CoerceReadings(v any) ([]float64, error) {
	switch x := v.(type) {
	case nil:
		return nil, eris.Wrap(ErrInvalidConsumption, "null value")
	case []float64:
		out := make([]float64, len(x))
		copy(out, x)
		return out, nil
	case string:
		return parseLiteralList(x)
	case *string:
		if x == nil {
			return nil, eris.Wrap(ErrInvalidConsumption, "null value")
		}
		return parseLiteralList(*x)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, eris.Wrapf(ErrInvalidConsumption, "unsupported type %T", v)
	}
	out := make([]float64, rv.Len())
	for i := range rv.Len() {
		f, ok := toFloat(rv.Index(i).Interface())
		if !ok {
			return nil, eris.Wrapf(ErrInvalidConsumption, "element %d is not numeric", i)
		}
		out[i] = f
	}
	return out, nil
}

func parseLiteralList(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, eris.Wrapf(ErrInvalidConsumption, "not a list literal: %q", truncate(s, 40))
	}
	var elems []*float64
	if err := json.Unmarshal([]byte(s), &elems); err != nil {
		return nil, eris.Wrapf(ErrInvalidConsumption, "unparseable list literal: %q", truncate(s, 40))
	}
	out := make([]float64, len(elems))
	for i, e := range elems {
		if e == nil {
			return nil, eris.Wrapf(ErrInvalidConsumption, "element %d is null", i)
		}
		out[i] = *e
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
