// Package validate checks structural and per-field correctness of input
// records and scores their quality.
package validate

import (
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/model"
)

var (
	// ErrSchema is returned when an expected field is absent from the record
	// set's shape.
	ErrSchema = eris.New("schema error")

	// ErrFormat is returned for a malformed identifier.
	ErrFormat = eris.New("format error")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validator checks record sets against a list of expected fields.
type Validator struct {
	expected []string
}

// New creates a Validator. An empty field list uses the default schema.
func New(expectedFields []string) *Validator {
	if len(expectedFields) == 0 {
		expectedFields = model.DefaultExpectedFields()
	}
	return &Validator{expected: expectedFields}
}

// ExpectedFields returns the fields this validator requires.
func (v *Validator) ExpectedFields() []string {
	return v.expected
}

// ValidateSchema fails with ErrSchema naming the first expected field that is
// absent from the table's shape.
func (v *Validator) ValidateSchema(t *model.Table) error {
	for _, f := range v.expected {
		if !t.HasColumn(f) {
			return eris.Wrapf(ErrSchema, "missing expected field: %s", f)
		}
	}
	zap.L().Debug("validate: schema passed", zap.Strings("fields", v.expected))
	return nil
}

// ValidateIDFormat fails with ErrFormat if id contains any character outside
// [A-Za-z0-9_] or is empty.
func ValidateIDFormat(id string) error {
	if !idPattern.MatchString(id) {
		return eris.Wrapf(ErrFormat, "invalid ID format: %q", id)
	}
	return nil
}

// ValidateIDs checks client_id and ext_dev_ref of every record, failing on
// the first malformed value.
func ValidateIDs(records []model.Record) error {
	for _, r := range records {
		if err := ValidateIDFormat(r.ClientID); err != nil {
			return eris.Wrapf(err, "row %d field %s", r.Index, model.FieldClientID)
		}
		if err := ValidateIDFormat(r.ExtDevRef); err != nil {
			return eris.Wrapf(err, "row %d field %s", r.Index, model.FieldExtDevRef)
		}
	}
	return nil
}
