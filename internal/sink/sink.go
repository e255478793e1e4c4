// Package sink loads transformed observations into their destination: a
// local file, a PostgreSQL table or a Kafka topic. Dropped rows are archived
// to a local audit file.
package sink

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/energy-etl/internal/config"
	"github.com/sells-group/energy-etl/internal/model"
)

// Sink drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverKafka    = "kafka"
)

// ObservationWriter persists a batch of observations.
type ObservationWriter interface {
	WriteObservations(ctx context.Context, obs []model.Observation) error
	Close() error
}

// New builds the writer selected by cfg.Driver. output is the file path for
// the file driver and is ignored otherwise.
func New(ctx context.Context, cfg config.SinkConfig, output string) (ObservationWriter, error) {
	var (
		w   ObservationWriter
		err error
	)
	switch cfg.Driver {
	case "", DriverFile:
		w, err = NewFileWriter(output, cfg.Format)
	case DriverPostgres:
		w, err = ConnectPostgres(ctx, cfg.DatabaseURL, cfg.Table)
	case DriverKafka:
		w, err = NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	default:
		return nil, eris.Errorf("sink: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}
