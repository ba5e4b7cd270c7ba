package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"codeberg.org/mutker/metrics-exporter/internal/checkpoint"
	"codeberg.org/mutker/metrics-exporter/internal/collector"
	"codeberg.org/mutker/metrics-exporter/internal/config"
	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/graph"
	"codeberg.org/mutker/metrics-exporter/internal/health"
	"codeberg.org/mutker/metrics-exporter/internal/history"
	"codeberg.org/mutker/metrics-exporter/internal/job"
	"codeberg.org/mutker/metrics-exporter/internal/jobset"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"codeberg.org/mutker/metrics-exporter/internal/metrics"
	"codeberg.org/mutker/metrics-exporter/internal/monitoring"
	"codeberg.org/mutker/metrics-exporter/internal/pid"
	"codeberg.org/mutker/metrics-exporter/internal/scheduler"
	"codeberg.org/mutker/metrics-exporter/internal/server"
	"github.com/jonboulle/clockwork"
)

type app struct {
	cfg       *config.Config
	exporter  *metrics.Exporter
	store     *graph.Store
	recorder  history.Recorder
	registry  *job.Registry
	runner    *job.Runner
	schedules map[string]string
	health    *health.Register

	closeOnce sync.Once
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	errFactory := errors.New()
	log := logger.Default()
	clock := clockwork.NewRealClock()

	exporter, err := metrics.NewExporter(metricsConfig(cfg))
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitMetrics, err)
	}

	mcfg := monitoring.DefaultConfig()
	mcfg.URL = cfg.Prometheus.URL
	mcfg.Token = cfg.Prometheus.Token
	mcfg.Insecure = cfg.Prometheus.Insecure
	client, err := monitoring.NewClient(mcfg, log)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	a := &app{
		cfg:      cfg,
		exporter: exporter,
		registry: job.NewRegistry(),
		health:   health.NewRegister(),
	}
	a.health.Add(client)

	var counter jobset.Counter
	if cfg.NeedsGraph() {
		gcfg := graph.DefaultConfig()
		gcfg.DSN = cfg.Graph.DSN
		if cfg.Graph.MaxConns > 0 {
			gcfg.MaxConns = cfg.Graph.MaxConns
		}
		a.store, err = graph.NewStore(ctx, gcfg)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrInitApp, err)
		}
		a.health.Add(a.store)
		counter = a.store
	}

	a.recorder, err = history.NewService(history.Config{
		Enabled: cfg.History.Enabled,
		DBPath:  cfg.History.Path,
	}, log)
	if err != nil {
		a.close()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	coll, err := collector.New(collector.Config{
		Instance:     cfg.Prometheus.Instance,
		Namespace:    cfg.Namespace,
		QueryTimeout: cfg.Prometheus.QueryTimeout,
	}, client, exporter, checkpoint.NewStore(clock), collector.WithClock(clock), collector.WithLogger(log))
	if err != nil {
		a.close()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	a.schedules, err = jobset.Register(a.registry, jobset.Deps{
		Counter:      counter,
		Collector:    coll,
		Sink:         exporter,
		CountTimeout: cfg.Prometheus.QueryTimeout,
		Log:          log,
	}, services(cfg))
	if err != nil {
		a.close()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	a.runner = job.NewRunner(clock, log, exporter, a.recorder)

	logger.Info().
		Int("jobs", a.registry.Len()).
		Str("prometheus", cfg.Prometheus.URL).
		Str("namespace", cfg.Namespace).
		Bool("history", cfg.History.Enabled).
		Msg("Metrics exporter initialized")

	return a, nil
}

// runOnce runs every job in registration order and optionally pushes the
// result. Job failures are logged by the runner and do not fail the pass.
func (a *app) runOnce(ctx context.Context) error {
	results := a.runner.RunAll(ctx, a.registry.Jobs())

	failed := 0
	for _, r := range results {
		if r.Outcome != job.OutcomeSuccess {
			failed++
		}
	}
	logger.Info().
		Int("jobs", len(results)).
		Int("failed", failed).
		Msg("Collection pass finished")

	if a.cfg.PushgatewayURL == "" {
		return nil
	}
	if err := a.exporter.Push(ctx); err != nil {
		return errors.New().Wrap(errors.ErrPushMetrics, err)
	}
	return nil
}

// serve schedules every job and serves /metrics until ctx is canceled.
func (a *app) serve(ctx context.Context) error {
	errFactory := errors.New()

	pidFile := pid.New(a.cfg.PIDDir)
	if err := pidFile.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove pid file")
		}
	}()

	sched, err := scheduler.New(a.cfg.Schedule, a.runner, logger.Default())
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	for _, j := range a.registry.Jobs() {
		if err := sched.Add(j, a.schedules[j.Name()]); err != nil {
			return errFactory.Wrap(errors.ErrInitApp, err)
		}
	}

	sched.Start(ctx)

	srv := server.New(a.cfg.ListenAddress, a.exporter.Registry(), a.health, logger.Default())
	serveErr := srv.Run(ctx)

	logger.Info().Msg("Received termination signal.")
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		logger.Warn().Err(err).Msg("Jobs still running at shutdown")
	}

	if serveErr != nil {
		return errFactory.Wrap(errors.ErrMainLoop, serveErr)
	}
	return nil
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if a.recorder != nil {
			if err := a.recorder.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close run history")
			}
		}
		if a.store != nil {
			a.store.Close()
		}
	})
}

func metricsConfig(cfg *config.Config) metrics.Config {
	mc := metrics.DefaultConfig()
	mc.PushgatewayURL = cfg.PushgatewayURL
	if cfg.PushJob != "" {
		mc.PushJob = cfg.PushJob
	}
	return mc
}

func services(cfg *config.Config) []jobset.Service {
	out := make([]jobset.Service, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		out = append(out, jobset.Service{
			Name:      s.Name,
			StackType: graph.StackType(s.StackType),
			Schedule:  s.Schedule,
		})
	}
	return out
}

// listJobs prints job names without touching any backend.
func listJobs(w io.Writer, cfg *config.Config) error {
	reg := job.NewRegistry()
	_, err := jobset.Register(reg, jobset.Deps{
		Counter:   idle{},
		Collector: idle{},
		Sink:      idle{},
		Log:       logger.Nop(),
	}, services(cfg))
	if err != nil {
		return err
	}

	for _, name := range reg.Names() {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}

// idle stands in for the backends when jobs are only listed.
type idle struct{}

func (idle) CountRecords(context.Context, graph.Filter) (int64, error) { return 0, nil }

func (idle) CollectDuration(context.Context, string) (collector.DurationResult, error) {
	return collector.DurationResult{}, nil
}

func (idle) CollectQuality(context.Context, string) (collector.QualityResult, error) {
	return collector.QualityResult{}, nil
}

func (idle) Set(string, float64, metrics.Labels) error     { return nil }
func (idle) Observe(string, float64, metrics.Labels) error { return nil }
