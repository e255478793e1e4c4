package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/energy-etl/internal/model"
)

func TestValidateSchema(t *testing.T) {
	t.Parallel()

	v := New(nil)
	tbl := &model.Table{Columns: model.DefaultExpectedFields()}
	assert.NoError(t, v.ValidateSchema(tbl))

	tbl = &model.Table{Columns: []string{"client_id", "date", "ext_dev_ref", "resolution"}}
	err := v.ValidateSchema(tbl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))
	assert.Contains(t, err.Error(), "energy_consumption")
}

func TestValidateSchema_CustomFields(t *testing.T) {
	t.Parallel()

	v := New([]string{"client_id", "meter"})
	assert.Equal(t, []string{"client_id", "meter"}, v.ExpectedFields())

	err := v.ValidateSchema(&model.Table{Columns: []string{"client_id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meter")
}

func TestValidateIDFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      string
		wantErr bool
	}{
		{"dev_01", false},
		{"A1", false},
		{"ABC_def_123", false},
		{"bad id!", true},
		{"dev-01", true},
		{"dev.01", true},
		{"", true},
		{"ąžuolas", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()
			err := ValidateIDFormat(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrFormat))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateIDs(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		{Index: 0, ClientID: "A1", ExtDevRef: "D1"},
		{Index: 1, ClientID: "A2", ExtDevRef: "bad dev"},
		{Index: 2, ClientID: "bad client", ExtDevRef: "D3"},
	}

	err := ValidateIDs(records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
	assert.Contains(t, err.Error(), "row 1")
	assert.Contains(t, err.Error(), "ext_dev_ref")

	assert.NoError(t, ValidateIDs(records[:1]))
}
