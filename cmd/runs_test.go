package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/energy-etl/internal/model"
	"github.com/sells-group/energy-etl/internal/monitoring"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:     "abc12345-6789-0000-0000-000000000000",
			Input:  "data/energy.parquet",
			Status: model.RunStatusComplete,
			Result: &model.RunResult{
				InputRows: 10, DroppedRows: 1, Observations: 216,
				Quality: model.QualityReport{TotalScore: 97.5},
			},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Input:     "data/énergie.parquet",
			Status:    model.RunStatusLoading,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	for _, want := range []string{"ID", "INPUT", "STATUS", "abc12345", "complete", "216", "97.5", "2025-06-15 10:30", "2m0s", "loading"} {
		assert.Contains(t, output, want)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 3)
	// STATUS column starts at the same display offset on every line.
	col := strings.Index(lines[0], "STATUS")
	assert.Equal(t, "complete", lines[1][col:col+len("complete")])
}

func TestFormatRunsList_TruncatesLongInput(t *testing.T) {
	runs := []model.Run{{
		ID:     "1",
		Input:  "https://example.com/" + strings.Repeat("x", 80) + ".parquet",
		Status: model.RunStatusFailed,
	}}
	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), ".parquet")
}

func TestFormatRunStats(t *testing.T) {
	snap := &monitoring.RunSnapshot{
		Total: 10, Complete: 7, Failed: 2, InProgress: 1,
		FailRate: 2.0 / 9.0, AvgQuality: 92.25, RowsDropped: 4, Observations: 1000,
		LookbackHours: 24,
	}
	var buf bytes.Buffer
	formatRunStats(&buf, snap)

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "22.2%")
	assert.Contains(t, output, "92.2")
	assert.Contains(t, output, "24h")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
