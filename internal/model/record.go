package model

import "time"

// Record is one typed input row. ClientID, ExtDevRef and Date are set by type
// conversion; Readings is set once EnergyConsumption has been coerced to a
// sequence of numbers.
type Record struct {
	Index             int       `json:"index"`
	ClientID          string    `json:"client_id"`
	ExtDevRef         string    `json:"ext_dev_ref"`
	Date              time.Time `json:"date"`
	DateNaive         bool      `json:"-"`
	Resolution        string    `json:"resolution"`
	EnergyConsumption any       `json:"energy_consumption"`
	Readings          []float64 `json:"-"`
	Raw               Row       `json:"-"`
}

// DroppedRecord is a row removed because its energy_consumption could not be
// coerced. Dropped rows are archived to the audit location.
type DroppedRecord struct {
	Index             int       `json:"index"`
	ClientID          string    `json:"client_id"`
	ExtDevRef         string    `json:"ext_dev_ref"`
	Date              time.Time `json:"date"`
	Resolution        string    `json:"resolution"`
	EnergyConsumption string    `json:"energy_consumption"`
	Reason            string    `json:"reason"`
}
