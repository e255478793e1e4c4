package sink

import (
	"strconv"
	"time"

	"github.com/sells-group/energy-etl/internal/model"
)

// ObservationRow is the flat, columnar form of an observation. Aggregates are
// spread into <level>_<stat> columns.
type ObservationRow struct {
	ClientID          string    `parquet:"client_id" json:"client_id"`
	ExtDevRef         string    `parquet:"ext_dev_ref" json:"ext_dev_ref"`
	Date              time.Time `parquet:"date,timestamp(millisecond)" json:"date"`
	ResolutionMinutes int64     `parquet:"resolution_in_min" json:"resolution_in_min"`
	Step              int64     `parquet:"step" json:"step"`
	Timestamp         time.Time `parquet:"timestamp,timestamp(millisecond)" json:"timestamp"`
	LocalDate         string    `parquet:"local_date" json:"local_date"`
	EnergyConsumption float64   `parquet:"energy_consumption" json:"energy_consumption"`
	Hour              int32     `parquet:"hour" json:"hour"`
	Month             int32     `parquet:"month" json:"month"`
	DayOfWeek         int32     `parquet:"day_of_week" json:"day_of_week"`
	IsWeekend         bool      `parquet:"is_weekend" json:"is_weekend"`
	TimeOfDay         string    `parquet:"time_of_day" json:"time_of_day"`
	Season            string    `parquet:"season" json:"season"`
	PeakFlag          bool      `parquet:"peak_flag" json:"peak_flag"`

	DailySum   float64 `parquet:"daily_sum" json:"daily_sum"`
	DailyMean  float64 `parquet:"daily_mean" json:"daily_mean"`
	DailyMax   float64 `parquet:"daily_max" json:"daily_max"`
	DailyMin   float64 `parquet:"daily_min" json:"daily_min"`
	TODSum     float64 `parquet:"tod_sum" json:"tod_sum"`
	TODMean    float64 `parquet:"tod_mean" json:"tod_mean"`
	TODMax     float64 `parquet:"tod_max" json:"tod_max"`
	TODMin     float64 `parquet:"tod_min" json:"tod_min"`
	SeasonSum  float64 `parquet:"season_sum" json:"season_sum"`
	SeasonMean float64 `parquet:"season_mean" json:"season_mean"`
	SeasonMax  float64 `parquet:"season_max" json:"season_max"`
	SeasonMin  float64 `parquet:"season_min" json:"season_min"`
}

// ObservationColumns lists the output columns in ObservationRow order.
var ObservationColumns = []string{
	"client_id", "ext_dev_ref", "date", "resolution_in_min", "step", "timestamp", "local_date",
	"energy_consumption", "hour", "month", "day_of_week", "is_weekend", "time_of_day", "season",
	"peak_flag",
	"daily_sum", "daily_mean", "daily_max", "daily_min",
	"tod_sum", "tod_mean", "tod_max", "tod_min",
	"season_sum", "season_mean", "season_max", "season_min",
}

// NewObservationRow flattens o.
func NewObservationRow(o model.Observation) ObservationRow {
	return ObservationRow{
		ClientID:          o.ClientID,
		ExtDevRef:         o.ExtDevRef,
		Date:              o.Date.UTC(),
		ResolutionMinutes: int64(o.ResolutionMinutes),
		Step:              int64(o.Step),
		Timestamp:         o.Timestamp.UTC(),
		LocalDate:         o.LocalDate,
		EnergyConsumption: o.EnergyConsumption,
		Hour:              int32(o.Hour),
		Month:             int32(o.Month),
		DayOfWeek:         int32(o.DayOfWeek),
		IsWeekend:         o.IsWeekend,
		TimeOfDay:         string(o.TimeOfDay),
		Season:            string(o.Season),
		PeakFlag:          o.PeakFlag,
		DailySum:          o.DailyAgg.Sum,
		DailyMean:         o.DailyAgg.Mean,
		DailyMax:          o.DailyAgg.Max,
		DailyMin:          o.DailyAgg.Min,
		TODSum:            o.TODAgg.Sum,
		TODMean:           o.TODAgg.Mean,
		TODMax:            o.TODAgg.Max,
		TODMin:            o.TODAgg.Min,
		SeasonSum:         o.SeasonAgg.Sum,
		SeasonMean:        o.SeasonAgg.Mean,
		SeasonMax:         o.SeasonAgg.Max,
		SeasonMin:         o.SeasonAgg.Min,
	}
}

// ObservationRows flattens every observation.
func ObservationRows(obs []model.Observation) []ObservationRow {
	rows := make([]ObservationRow, len(obs))
	for i, o := range obs {
		rows[i] = NewObservationRow(o)
	}
	return rows
}

// Values returns the row's cells in ObservationColumns order, typed for COPY.
func (r ObservationRow) Values() []any {
	return []any{
		r.ClientID, r.ExtDevRef, r.Date, r.ResolutionMinutes, r.Step, r.Timestamp, r.LocalDate,
		r.EnergyConsumption, r.Hour, r.Month, r.DayOfWeek, r.IsWeekend, r.TimeOfDay, r.Season,
		r.PeakFlag,
		r.DailySum, r.DailyMean, r.DailyMax, r.DailyMin,
		r.TODSum, r.TODMean, r.TODMax, r.TODMin,
		r.SeasonSum, r.SeasonMean, r.SeasonMax, r.SeasonMin,
	}
}

// DroppedRow is the audit form of a row removed during validation.
type DroppedRow struct {
	Index             int64     `parquet:"index" json:"index"`
	ClientID          string    `parquet:"client_id" json:"client_id"`
	ExtDevRef         string    `parquet:"ext_dev_ref" json:"ext_dev_ref"`
	Date              time.Time `parquet:"date,timestamp(millisecond)" json:"date"`
	Resolution        string    `parquet:"resolution" json:"resolution"`
	EnergyConsumption string    `parquet:"energy_consumption" json:"energy_consumption"`
	Reason            string    `parquet:"reason" json:"reason"`
}

// DroppedColumns lists the audit columns in DroppedRow order.
var DroppedColumns = []string{"index", "client_id", "ext_dev_ref", "date", "resolution", "energy_consumption", "reason"}

// DroppedRows converts dropped records to audit rows.
func DroppedRows(dropped []model.DroppedRecord) []DroppedRow {
	rows := make([]DroppedRow, len(dropped))
	for i, d := range dropped {
		rows[i] = DroppedRow{
			Index:             int64(d.Index),
			ClientID:          d.ClientID,
			ExtDevRef:         d.ExtDevRef,
			Date:              d.Date.UTC(),
			Resolution:        d.Resolution,
			EnergyConsumption: d.EnergyConsumption,
			Reason:            d.Reason,
		}
	}
	return rows
}

// csvRecord renders cells as CSV strings.
func csvRecord(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case string:
			out[i] = x
		case time.Time:
			out[i] = x.Format(time.RFC3339Nano)
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case int64:
			out[i] = strconv.FormatInt(x, 10)
		case int32:
			out[i] = strconv.FormatInt(int64(x), 10)
		case bool:
			out[i] = strconv.FormatBool(x)
		}
	}
	return out
}

func (r DroppedRow) values() []any {
	return []any{r.Index, r.ClientID, r.ExtDevRef, r.Date, r.Resolution, r.EnergyConsumption, r.Reason}
}
