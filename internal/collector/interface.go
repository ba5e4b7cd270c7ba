package collector

import (
	"context"

	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"codeberg.org/mutker/metrics-exporter/internal/workflow"
	"github.com/jonboulle/clockwork"
)

// EventSource is the read-only view of the monitoring backend.
type EventSource interface {
	QueryEvents(ctx context.Context, q workflow.Query) ([]workflow.Event, error)
}

// DurationResult describes one duration collection.
type DurationResult struct {
	// Window is the processed window; Window.End is the new checkpoint.
	Window   workflow.Window
	Observed int
	Skipped  int
}

// QualityResult describes one quality collection. Published is false when
// no workflow has completed yet and the gauge was left alone.
type QualityResult struct {
	Completed int
	Succeeded int
	Ratio     float64
	Published bool
}

// Option customizes a Collector.
type Option func(*options)

type options struct {
	clock clockwork.Clock
	log   logger.Logger
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}
