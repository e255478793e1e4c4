package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/config"
	"github.com/sells-group/energy-etl/internal/monitoring"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the ETL job on a fixed interval or cron schedule",
	Long:  "Runs the ETL job every etl.interval_minutes, or on etl.schedule when a cron expression is set. A failed run is logged and notified; the scheduler keeps going.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyRunFlags(cmd, cfg)
		now, _ := cmd.Flags().GetBool("now")
		return runScheduled(cmd.Context(), cfg, now)
	},
}

// runScheduled runs the ETL job on c's schedule until SIGINT or SIGTERM.
// With now set, one run also starts immediately.
func runScheduled(parent context.Context, c *config.Config, now bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	c.ETL.Mode = "scheduled"

	sched, desc, err := buildSchedule(c.ETL)
	if err != nil {
		return err
	}

	env, err := newRunEnv(ctx, c)
	if err != nil {
		return err
	}
	defer env.Close()

	job := newGuardedJob(func() {
		if _, err := env.runner.Run(ctx); err != nil {
			zap.L().Error("schedule: run failed, waiting for next tick", zap.Error(err))
		}
	})

	cr := cron.New()
	cr.Schedule(sched, cron.FuncJob(job.Tick))
	cr.Start()
	zap.L().Info("schedule: ETL scheduled", zap.String("schedule", desc))

	if now {
		job.Go()
	}

	if env.store != nil && c.Monitoring.CheckIntervalSecs > 0 {
		checker := monitoring.NewChecker(monitoring.NewCollector(env.store), env.notifier, c.Monitoring)
		go checker.Run(ctx)
	}

	srv := serveMetrics(c.Metrics.ListenAddr, env.metrics)

	<-ctx.Done()
	zap.L().Info("schedule: shutting down")
	<-cr.Stop().Done()
	job.Wait()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}

// guardedJob runs fn at most once at a time. Ticks that arrive while fn is
// running are skipped.
type guardedJob struct {
	fn      func()
	running sync.Mutex
	started sync.WaitGroup
}

func newGuardedJob(fn func()) *guardedJob {
	return &guardedJob{fn: fn}
}

// Tick runs fn unless a run is already in progress.
func (j *guardedJob) Tick() {
	j.tick()
}

// tick reports whether fn ran.
func (j *guardedJob) tick() bool {
	if !j.running.TryLock() {
		zap.L().Warn("schedule: previous run still in progress, skipping tick")
		return false
	}
	defer j.running.Unlock()
	j.fn()
	return true
}

// Go runs a tick in the background. Wait blocks until it returns.
func (j *guardedJob) Go() {
	j.started.Add(1)
	go func() {
		defer j.started.Done()
		j.tick()
	}()
}

// Wait blocks until every run started by Go has returned.
func (j *guardedJob) Wait() {
	j.started.Wait()
}

// buildSchedule returns the cron schedule for cfg and a description for
// logging. A cron expression takes precedence over the interval.
func buildSchedule(c config.ETLConfig) (cron.Schedule, string, error) {
	if c.Schedule != "" {
		s, err := cron.ParseStandard(c.Schedule)
		if err != nil {
			return nil, "", eris.Wrapf(err, "parse etl.schedule %q", c.Schedule)
		}
		return s, c.Schedule, nil
	}
	if c.IntervalMinutes < 1 {
		return nil, "", eris.Errorf("etl.interval_minutes must be >= 1, got %d", c.IntervalMinutes)
	}
	every := time.Duration(c.IntervalMinutes) * time.Minute
	return cron.Every(every), "every " + every.String(), nil
}

// serveMetrics exposes /metrics on addr. It returns nil when addr is empty.
func serveMetrics(addr string, m *monitoring.Metrics) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("schedule: metrics server failed", zap.Error(err))
		}
	}()
	zap.L().Info("schedule: serving metrics", zap.String("addr", addr))
	return srv
}

func init() {
	addRunFlags(scheduleCmd)
	scheduleCmd.Flags().Bool("now", false, "also run once immediately instead of waiting for the first tick")
	rootCmd.AddCommand(scheduleCmd)
}
