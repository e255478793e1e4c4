package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/config"
	"github.com/sells-group/energy-etl/internal/fetcher"
	"github.com/sells-group/energy-etl/internal/monitoring"
	"github.com/sells-group/energy-etl/internal/pipeline"
	"github.com/sells-group/energy-etl/internal/sink"
	"github.com/sells-group/energy-etl/internal/store"
)

// initStore opens the run history store. It returns nil when store.path is
// empty.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if c.Store.Path == "" {
		return nil, nil
	}
	st, err := store.NewSQLite(c.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open run store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate run store")
	}
	return st, nil
}

// newSource creates the input source for c.
func newSource(c *config.Config) *fetcher.Source {
	return fetcher.NewSource(fetcher.SourceOptions{
		CSV: fetcher.CSVOptions{Charset: c.ETL.InputCharset},
	})
}

// runEnv holds the long-lived collaborators of the ETL runner.
type runEnv struct {
	runner   *pipeline.Runner
	store    store.Store
	sink     sink.ObservationWriter
	notifier monitoring.Notifier
	metrics  *monitoring.Metrics
}

func newRunEnv(ctx context.Context, c *config.Config) (*runEnv, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}

	w, err := sink.New(ctx, c.Sink, c.ETL.Output)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, eris.Wrap(err, "init sink")
	}

	env := &runEnv{
		store:    st,
		sink:     w,
		notifier: monitoring.FromConfig(c.Alert),
		metrics:  monitoring.NewMetrics(),
	}
	env.runner = pipeline.NewRunner(c, pipeline.Deps{
		Source:   newSource(c),
		Sink:     w,
		Store:    st,
		Notifier: env.notifier,
		Metrics:  env.metrics,
	})
	return env, nil
}

func (e *runEnv) Close() {
	if err := e.sink.Close(); err != nil {
		zap.L().Warn("close sink", zap.Error(err))
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			zap.L().Warn("close run store", zap.Error(err))
		}
	}
}
