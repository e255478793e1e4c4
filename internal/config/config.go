// Package config loads the ETL configuration and initialises logging.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	ETL        ETLConfig        `yaml:"etl" mapstructure:"etl"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Alert      AlertConfig      `yaml:"alert" mapstructure:"alert"`
	Sink       SinkConfig       `yaml:"sink" mapstructure:"sink"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ETLConfig configures the extract/transform/load job.
type ETLConfig struct {
	Input           string   `yaml:"input" mapstructure:"input"`
	Output          string   `yaml:"output" mapstructure:"output"`
	AuditPath       string   `yaml:"audit_path" mapstructure:"audit_path"`
	LocalTimezone   string   `yaml:"local_timezone" mapstructure:"local_timezone"`
	ExpectedFields  []string `yaml:"expected_fields" mapstructure:"expected_fields"`
	Mode            string   `yaml:"mode" mapstructure:"mode"`
	IntervalMinutes int      `yaml:"interval_minutes" mapstructure:"interval_minutes"`
	Schedule        string   `yaml:"schedule" mapstructure:"schedule"`
	SummaryPath     string   `yaml:"summary_path" mapstructure:"summary_path"`
	InputCharset    string   `yaml:"input_charset" mapstructure:"input_charset"`
}

// RetryConfig configures the I/O retry wrapper around extract and load.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	DelaySecs   float64 `yaml:"delay_secs" mapstructure:"delay_secs"`
}

// Delay returns DelaySecs as a duration.
func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelaySecs * float64(time.Second))
}

// AlertConfig configures failure notification channels.
type AlertConfig struct {
	WebhookURL string     `yaml:"webhook_url" mapstructure:"webhook_url"`
	SMTP       SMTPConfig `yaml:"smtp" mapstructure:"smtp"`
}

// SMTPConfig configures the email alert channel.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
	To       string `yaml:"to" mapstructure:"to"`
}

// Configured reports whether enough is set to send mail.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.From != "" && s.To != ""
}

// SinkConfig selects where observations are loaded.
type SinkConfig struct {
	Driver      string      `yaml:"driver" mapstructure:"driver"`
	Format      string      `yaml:"format" mapstructure:"format"`
	DatabaseURL string      `yaml:"database_url" mapstructure:"database_url"`
	Table       string      `yaml:"table" mapstructure:"table"`
	Kafka       KafkaConfig `yaml:"kafka" mapstructure:"kafka"`
}

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// StoreConfig configures run history persistence.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MetricsConfig configures Prometheus metrics. One-shot runs push to a
// Pushgateway; the scheduler may also serve /metrics on ListenAddr.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" mapstructure:"pushgateway_url"`
	Job            string `yaml:"job" mapstructure:"job"`
	ListenAddr     string `yaml:"listen_addr" mapstructure:"listen_addr"`
}

// MonitoringConfig configures the background failure-rate check run
// alongside the scheduler.
type MonitoringConfig struct {
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENERGY_ETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key is registered so that AutomaticEnv picks it up on
	// Unmarshal.
	v.SetDefault("etl.input", "")
	v.SetDefault("etl.output", "")
	v.SetDefault("etl.audit_path", "invalid_energy_rows.parquet")
	v.SetDefault("etl.local_timezone", "Europe/Vilnius")
	v.SetDefault("etl.expected_fields", []string{"client_id", "date", "ext_dev_ref", "energy_consumption", "resolution"})
	v.SetDefault("etl.mode", "once")
	v.SetDefault("etl.interval_minutes", 60)
	v.SetDefault("etl.schedule", "")
	v.SetDefault("etl.summary_path", "")
	v.SetDefault("etl.input_charset", "utf-8")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay_secs", 2)
	v.SetDefault("alert.webhook_url", "")
	v.SetDefault("alert.smtp.host", "")
	v.SetDefault("alert.smtp.port", 587)
	v.SetDefault("alert.smtp.user", "")
	v.SetDefault("alert.smtp.password", "")
	v.SetDefault("alert.smtp.from", "")
	v.SetDefault("alert.smtp.to", "")
	v.SetDefault("sink.driver", "file")
	v.SetDefault("sink.format", "")
	v.SetDefault("sink.database_url", "")
	v.SetDefault("sink.table", "energy_observations")
	v.SetDefault("sink.kafka.brokers", []string{})
	v.SetDefault("sink.kafka.topic", "energy-observations")
	v.SetDefault("store.path", "energy-etl.db")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "energy_etl")
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.ETL.Mode {
	case "once", "scheduled":
	default:
		return eris.Errorf("config: etl.mode must be once or scheduled, got %q", c.ETL.Mode)
	}
	switch c.Sink.Driver {
	case "file":
	case "postgres":
		if c.Sink.DatabaseURL == "" {
			return eris.New("config: sink.database_url is required for the postgres sink")
		}
	case "kafka":
		if len(c.Sink.Kafka.Brokers) == 0 || c.Sink.Kafka.Topic == "" {
			return eris.New("config: sink.kafka.brokers and sink.kafka.topic are required for the kafka sink")
		}
	default:
		return eris.Errorf("config: unknown sink.driver %q", c.Sink.Driver)
	}
	if c.Retry.MaxAttempts < 1 {
		return eris.Errorf("config: retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.ETL.IntervalMinutes < 1 && c.ETL.Schedule == "" {
		return eris.New("config: etl.interval_minutes must be >= 1 when no schedule is set")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
