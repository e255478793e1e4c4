package model

import "slices"

// Input field names.
const (
	FieldClientID          = "client_id"
	FieldDate              = "date"
	FieldExtDevRef         = "ext_dev_ref"
	FieldEnergyConsumption = "energy_consumption"
	FieldResolution        = "resolution"
)

// DefaultExpectedFields returns the fields every input record set must carry.
func DefaultExpectedFields() []string {
	return []string{FieldClientID, FieldDate, FieldExtDevRef, FieldEnergyConsumption, FieldResolution}
}

// Row is one raw input row keyed by column name. A nil or absent value is a
// missing cell.
type Row map[string]any

// Table is an in-memory record set together with its column shape. Columns
// may list fields that are nil in every row; a field absent from Columns is
// absent from the shape.
type Table struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether name is part of the table's shape.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// AddColumn appends name to the shape if not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// IsMissing reports whether a raw cell value counts as null.
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	switch x := v.(type) {
	case *string:
		return x == nil
	case *float64:
		return x == nil
	}
	return false
}
