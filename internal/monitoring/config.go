package monitoring

import (
	"net/url"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
)

const (
	defaultCompletionMetric = "argo_workflow_completion_time"
	defaultStartMetric      = "argo_workflow_start_time"
	defaultPhaseMetric      = "argo_workflow_status_phase"
	defaultServiceLabel     = "label_component"
	defaultNameLabel        = "name"
	defaultPhaseLabel       = "phase"
	defaultHealthTimeout    = 5 * time.Second
)

type Config struct {
	URL      string
	Token    string
	Insecure bool

	// Series exported for workflows, all keyed by NameLabel.
	CompletionMetric string
	StartMetric      string
	PhaseMetric      string
	ServiceLabel     string
	NameLabel        string
	PhaseLabel       string

	HealthTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		CompletionMetric: defaultCompletionMetric,
		StartMetric:      defaultStartMetric,
		PhaseMetric:      defaultPhaseMetric,
		ServiceLabel:     defaultServiceLabel,
		NameLabel:        defaultNameLabel,
		PhaseLabel:       defaultPhaseLabel,
		HealthTimeout:    defaultHealthTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.URL == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "prometheus url is required")
	}
	if _, err := url.ParseRequestURI(c.URL); err != nil {
		return errFactory.Wrap(ErrInvalidConfig, err)
	}
	if c.CompletionMetric == "" || c.StartMetric == "" || c.PhaseMetric == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "workflow metric names are required")
	}
	if c.ServiceLabel == "" || c.NameLabel == "" || c.PhaseLabel == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "workflow label names are required")
	}
	return nil
}
