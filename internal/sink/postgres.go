package sink

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/db"
	"github.com/sells-group/energy-etl/internal/model"
)

// observationDDL matches ObservationColumns.
var observationDDL = []string{
	"client_id TEXT NOT NULL",
	"ext_dev_ref TEXT NOT NULL",
	"date TIMESTAMPTZ NOT NULL",
	"resolution_in_min BIGINT NOT NULL",
	"step BIGINT NOT NULL",
	"timestamp TIMESTAMPTZ NOT NULL",
	"local_date TEXT",
	"energy_consumption DOUBLE PRECISION NOT NULL",
	"hour INTEGER NOT NULL",
	"month INTEGER NOT NULL",
	"day_of_week INTEGER NOT NULL",
	"is_weekend BOOLEAN NOT NULL",
	"time_of_day TEXT NOT NULL",
	"season TEXT NOT NULL",
	"peak_flag BOOLEAN NOT NULL",
	"daily_sum DOUBLE PRECISION",
	"daily_mean DOUBLE PRECISION",
	"daily_max DOUBLE PRECISION",
	"daily_min DOUBLE PRECISION",
	"tod_sum DOUBLE PRECISION",
	"tod_mean DOUBLE PRECISION",
	"tod_max DOUBLE PRECISION",
	"tod_min DOUBLE PRECISION",
	"season_sum DOUBLE PRECISION",
	"season_mean DOUBLE PRECISION",
	"season_max DOUBLE PRECISION",
	"season_min DOUBLE PRECISION",
}

// observationKey identifies one reading; reloading a batch replaces it.
var observationKey = []string{"client_id", "ext_dev_ref", "timestamp"}

// PostgresWriter upserts observations into a PostgreSQL table.
type PostgresWriter struct {
	pool  db.Pool
	table string
	close func()
}

// NewPostgresWriter creates a writer over an existing pool.
func NewPostgresWriter(pool db.Pool, table string) *PostgresWriter {
	return &PostgresWriter{pool: pool, table: table}
}

// ConnectPostgres opens a pgx pool for databaseURL and returns a writer that
// closes it.
func ConnectPostgres(ctx context.Context, databaseURL, table string) (*PostgresWriter, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "sink: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "sink: ping postgres")
	}
	w := NewPostgresWriter(pool, table)
	w.close = pool.Close
	return w, nil
}

// WriteObservations implements ObservationWriter.
func (w *PostgresWriter) WriteObservations(ctx context.Context, obs []model.Observation) error {
	if err := db.EnsureTable(ctx, w.pool, w.table, observationDDL, observationKey); err != nil {
		return err
	}
	rows := ObservationRows(obs)
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.Values()
	}
	n, err := db.BulkUpsert(ctx, w.pool, db.UpsertConfig{
		Table:        w.table,
		Columns:      ObservationColumns,
		ConflictKeys: observationKey,
	}, values)
	if err != nil {
		return eris.Wrapf(err, "sink: load %s", w.table)
	}
	zap.L().Info("sink: observations upserted",
		zap.String("table", w.table),
		zap.Int64("rows", n),
	)
	return nil
}

// Close implements ObservationWriter.
func (w *PostgresWriter) Close() error {
	if w.close != nil {
		w.close()
	}
	return nil
}
