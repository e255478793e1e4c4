package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusQueued, "queued"},
		{RunStatusExtracting, "extracting"},
		{RunStatusNormalizing, "normalizing"},
		{RunStatusValidating, "validating"},
		{RunStatusFeatureEngineering, "feature_engineering"},
		{RunStatusLoading, "loading"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestRunStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.True(t, RunStatusComplete.Terminal())
	assert.True(t, RunStatusFailed.Terminal())
	assert.False(t, RunStatusLoading.Terminal())
	assert.False(t, RunStatusQueued.Terminal())
}
