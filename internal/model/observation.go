package model

import "time"

// TimeOfDay buckets an hour of the day.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
	TimeOfDayNight     TimeOfDay = "night"
)

// Peak reports whether the bucket is a peak consumption period.
func (t TimeOfDay) Peak() bool {
	return t == TimeOfDayMorning || t == TimeOfDayEvening
}

// Season buckets a calendar month.
type Season string

const (
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
)

// AggregateStats holds sum, mean, max and min of energy_consumption over one
// aggregate key.
type AggregateStats struct {
	Sum  float64 `json:"sum" yaml:"sum"`
	Mean float64 `json:"mean" yaml:"mean"`
	Max  float64 `json:"max" yaml:"max"`
	Min  float64 `json:"min" yaml:"min"`
}

// Observation is one exploded reading with its calendar features and the
// daily, time-of-day and season aggregates of its grouping key.
type Observation struct {
	ClientID          string    `json:"client_id"`
	ExtDevRef         string    `json:"ext_dev_ref"`
	Date              time.Time `json:"date"`
	ResolutionMinutes int       `json:"resolution_in_min"`
	Step              int       `json:"step"`
	Timestamp         time.Time `json:"timestamp"`
	// LocalDate is the calendar date in the local timezone, empty when no
	// local timezone is configured.
	LocalDate string `json:"local_date,omitempty"`
	// GroupDate is the date component of the grouping key: midnight of
	// LocalDate when a timezone is configured, otherwise Date.
	GroupDate         time.Time `json:"-"`
	EnergyConsumption float64   `json:"energy_consumption"`
	Hour              int       `json:"hour"`
	Month             int       `json:"month"`
	DayOfWeek         int       `json:"day_of_week"`
	IsWeekend         bool      `json:"is_weekend"`
	TimeOfDay         TimeOfDay `json:"time_of_day"`
	Season            Season    `json:"season"`
	PeakFlag          bool      `json:"peak_flag"`

	DailyAgg  AggregateStats `json:"daily"`
	TODAgg    AggregateStats `json:"tod"`
	SeasonAgg AggregateStats `json:"season_agg"`
}
