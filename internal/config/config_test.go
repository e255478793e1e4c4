package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "invalid_energy_rows.parquet", cfg.ETL.AuditPath)
	assert.Equal(t, "Europe/Vilnius", cfg.ETL.LocalTimezone)
	assert.Equal(t, []string{"client_id", "date", "ext_dev_ref", "energy_consumption", "resolution"}, cfg.ETL.ExpectedFields)
	assert.Equal(t, "once", cfg.ETL.Mode)
	assert.Equal(t, "utf-8", cfg.ETL.InputCharset)
	assert.Equal(t, 60, cfg.ETL.IntervalMinutes)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.Delay())
	assert.Equal(t, 587, cfg.Alert.SMTP.Port)
	assert.False(t, cfg.Alert.SMTP.Configured())
	assert.Equal(t, "file", cfg.Sink.Driver)
	assert.Equal(t, "energy_observations", cfg.Sink.Table)
	assert.Equal(t, "energy-etl.db", cfg.Store.Path)
	assert.Equal(t, "energy_etl", cfg.Metrics.Job)
	assert.Empty(t, cfg.Metrics.ListenAddr)
	assert.Equal(t, "energy-observations", cfg.Sink.Kafka.Topic)
	assert.InDelta(t, 0.5, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
etl:
  input: data/energy.parquet
  output: out/observations.parquet
  local_timezone: ""
  mode: scheduled
  interval_minutes: 15
retry:
  max_attempts: 5
  delay_secs: 0.5
sink:
  driver: kafka
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
    topic: energy
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/energy.parquet", cfg.ETL.Input)
	assert.Equal(t, "out/observations.parquet", cfg.ETL.Output)
	assert.Empty(t, cfg.ETL.LocalTimezone)
	assert.Equal(t, "scheduled", cfg.ETL.Mode)
	assert.Equal(t, 15, cfg.ETL.IntervalMinutes)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.Delay())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Sink.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, "invalid_energy_rows.parquet", cfg.ETL.AuditPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
etl:
  local_timezone: Europe/Berlin
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("ENERGY_ETL_ETL_LOCAL_TIMEZONE", "UTC")
	t.Setenv("ENERGY_ETL_LOG_LEVEL", "warn")
	t.Setenv("ENERGY_ETL_ALERT_SMTP_HOST", "smtp.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "UTC", cfg.ETL.LocalTimezone)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "smtp.example.com", cfg.Alert.SMTP.Host)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.ETL.Mode = "once"
	cfg.ETL.IntervalMinutes = 60
	cfg.Retry.MaxAttempts = 3
	cfg.Sink.Driver = "file"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad mode", func(c *Config) { c.ETL.Mode = "sometimes" }, "etl.mode"},
		{"unknown sink", func(c *Config) { c.Sink.Driver = "s3" }, "unknown sink.driver"},
		{"postgres without url", func(c *Config) { c.Sink.Driver = "postgres" }, "sink.database_url"},
		{"postgres with url", func(c *Config) {
			c.Sink.Driver = "postgres"
			c.Sink.DatabaseURL = "postgres://localhost/energy"
		}, ""},
		{"kafka without topic", func(c *Config) {
			c.Sink.Driver = "kafka"
			c.Sink.Kafka.Brokers = []string{"localhost:9092"}
		}, "sink.kafka"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"zero interval", func(c *Config) { c.ETL.IntervalMinutes = 0 }, "interval_minutes"},
		{"zero interval with cron", func(c *Config) {
			c.ETL.IntervalMinutes = 0
			c.ETL.Schedule = "0 * * * *"
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
