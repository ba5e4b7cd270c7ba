package metrics

import (
	"context"
	"math"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/job"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Exporter owns the Prometheus registry behind the scrape endpoint.
type Exporter struct {
	cfg        Config
	registry   *prometheus.Registry
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec

	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

var (
	_ Sink         = (*Exporter)(nil)
	_ job.Observer = (*Exporter)(nil)
)

// NewExporter registers every metric in Schema on a fresh registry.
func NewExporter(cfg Config) (*Exporter, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	e := &Exporter{
		cfg:        cfg,
		registry:   prometheus.NewRegistry(),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: jobRunsTotal,
			Help: "Collection job runs by outcome.",
		}, []string{labelJob, labelOutcome}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    jobDurationSeconds,
			Help:    "Collection job run time in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{labelJob}),
	}

	toRegister := []prometheus.Collector{e.jobRuns, e.jobDuration}
	if cfg.GoCollectors {
		toRegister = append(toRegister,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	for _, def := range Schema {
		switch def.Kind {
		case KindGauge:
			vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: def.Name, Help: def.Help}, def.Labels)
			e.gauges[def.Name] = vec
			toRegister = append(toRegister, vec)
		case KindHistogram:
			vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    def.Name,
				Help:    def.Help,
				Buckets: def.Buckets,
			}, def.Labels)
			e.histograms[def.Name] = vec
			toRegister = append(toRegister, vec)
		}
	}

	for _, c := range toRegister {
		if err := e.registry.Register(c); err != nil {
			return nil, errFactory.Wrap(ErrRegisterFailed, err)
		}
	}

	logger.Debug().
		Int("metrics", len(Schema)).
		Bool("push", cfg.PushgatewayURL != "").
		Msg("Metrics exporter initialized")

	return e, nil
}

// Registry exposes the registry for the HTTP handler.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Set stores value in the gauge name. The last write wins.
func (e *Exporter) Set(name string, value float64, labels Labels) error {
	errFactory := errors.New()

	vec, ok := e.gauges[name]
	if !ok {
		if _, isHistogram := e.histograms[name]; isHistogram {
			return errFactory.WithData(ErrWrongKind, name)
		}
		return errFactory.WithData(ErrUnknownMetric, name)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errFactory.WithData(ErrInvalidValue, name)
	}

	g, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return errFactory.Wrap(ErrInvalidLabels, err)
	}
	g.Set(value)

	return nil
}

// Observe adds value to the histogram name.
func (e *Exporter) Observe(name string, value float64, labels Labels) error {
	errFactory := errors.New()

	vec, ok := e.histograms[name]
	if !ok {
		if _, isGauge := e.gauges[name]; isGauge {
			return errFactory.WithData(ErrWrongKind, name)
		}
		return errFactory.WithData(ErrUnknownMetric, name)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errFactory.WithData(ErrInvalidValue, name)
	}

	h, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return errFactory.Wrap(ErrInvalidLabels, err)
	}
	h.Observe(value)

	return nil
}

// ObserveRun counts a finished job run.
func (e *Exporter) ObserveRun(_ context.Context, result job.Result) {
	e.jobRuns.WithLabelValues(result.Job, string(result.Outcome)).Inc()
	e.jobDuration.WithLabelValues(result.Job).Observe(result.Duration().Seconds())
}

// Push sends the whole registry to the configured Pushgateway.
func (e *Exporter) Push(ctx context.Context) error {
	errFactory := errors.New()

	if e.cfg.PushgatewayURL == "" {
		return errFactory.New(ErrPushDisabled)
	}

	err := push.New(e.cfg.PushgatewayURL, e.cfg.PushJob).
		Gatherer(e.registry).
		PushContext(ctx)
	if err != nil {
		return errFactory.Wrap(ErrPushFailed, err)
	}

	logger.Info().
		Str("url", e.cfg.PushgatewayURL).
		Str("job", e.cfg.PushJob).
		Msg("Pushed metrics")

	return nil
}
