package fetcher

import (
	"bytes"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parquetFixture struct {
	ClientID          string    `parquet:"client_id"`
	ExtDevRef         string    `parquet:"ext_dev_ref"`
	Date              time.Time `parquet:"date"`
	Resolution        *string   `parquet:"resolution,optional"`
	EnergyConsumption []float64 `parquet:"energy_consumption,list"`
}

type parquetPartialFixture struct {
	ClientID string `parquet:"client_id"`
	Date     string `parquet:"date"`
}

func writeParquet[T any](t *testing.T, rows []T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, parquet.Write(&buf, rows))
	return buf.Bytes()
}

func TestReadParquet(t *testing.T) {
	hourly := "1hour"
	date := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	data := writeParquet(t, []parquetFixture{
		{ClientID: "A1", ExtDevRef: "D1", Date: date, Resolution: &hourly, EnergyConsumption: []float64{10, 20, 30}},
		{ClientID: "A2", ExtDevRef: "D2", Date: date.Add(24 * time.Hour), Resolution: nil, EnergyConsumption: []float64{1.5}},
	})

	tbl, err := ReadParquet(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"client_id", "ext_dev_ref", "date", "resolution", "energy_consumption"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())

	first := tbl.Rows[0]
	assert.Equal(t, "A1", first["client_id"])
	assert.Equal(t, "D1", first["ext_dev_ref"])
	assert.Equal(t, "1hour", first["resolution"])
	assert.Equal(t, []any{10.0, 20.0, 30.0}, first["energy_consumption"])
	gotDate, ok := first["date"].(time.Time)
	require.True(t, ok, "date should decode as time.Time, got %T", first["date"])
	assert.True(t, date.Equal(gotDate))

	second := tbl.Rows[1]
	assert.Nil(t, second["resolution"])
	assert.Equal(t, []any{1.5}, second["energy_consumption"])
}

func TestReadParquet_ShapeFollowsSchema(t *testing.T) {
	data := writeParquet(t, []parquetPartialFixture{{ClientID: "A1", Date: "2023-01-01"}})

	tbl, err := ReadParquet(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"client_id", "date"}, tbl.Columns)
	assert.False(t, tbl.HasColumn("energy_consumption"))
	assert.Equal(t, "2023-01-01", tbl.Rows[0]["date"])
}

func TestReadParquet_Corrupt(t *testing.T) {
	_, err := ReadParquet([]byte("PAR1 definitely not parquet"))
	require.Error(t, err)
}
