package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Metrics holds the Prometheus collectors for ETL runs on a dedicated
// registry.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RowsRead         prometheus.Counter
	RowsDropped      prometheus.Counter
	ObservationsOut  prometheus.Counter
	QualityScore     prometheus.Gauge
	StageDuration    *prometheus.HistogramVec
	LastSuccessEpoch prometheus.Gauge
}

// NewMetrics creates and registers the run collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "energy_etl",
				Name:      "runs_total",
				Help:      "ETL runs by final status",
			},
			[]string{"status"},
		),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energy_etl",
			Name:      "rows_read_total",
			Help:      "Input rows read by extract",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energy_etl",
			Name:      "rows_dropped_total",
			Help:      "Rows dropped for an invalid energy_consumption value",
		}),
		ObservationsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energy_etl",
			Name:      "observations_written_total",
			Help:      "Exploded observations handed to the sink",
		}),
		QualityScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "energy_etl",
			Name:      "quality_score",
			Help:      "Data quality score of the last transformed record set (0-100)",
		}),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "energy_etl",
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
		LastSuccessEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "energy_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
	m.Registry.MustRegister(
		m.RunsTotal,
		m.RowsRead,
		m.RowsDropped,
		m.ObservationsOut,
		m.QualityScore,
		m.StageDuration,
		m.LastSuccessEpoch,
	)
	return m
}

// ObserveStage records how long stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RunFinished counts a finished run by status.
func (m *Metrics) RunFinished(status string) {
	m.RunsTotal.WithLabelValues(status).Inc()
	if status == "complete" {
		m.LastSuccessEpoch.SetToCurrentTime()
	}
}

// Push sends the registry to a Prometheus Pushgateway. An empty url is a
// no-op.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return eris.Wrap(err, "monitoring: push metrics")
	}
	zap.L().Debug("monitoring: metrics pushed", zap.String("job", job))
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
