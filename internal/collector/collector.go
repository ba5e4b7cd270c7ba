// Package collector turns workflow events into exported metrics.
//
// Duration collection is incremental: each call handles the window between
// the stored checkpoint and now, and only moves the checkpoint after the
// whole window was published. A failed call leaves the checkpoint alone so
// the next call retries the same window, extended up to its own now.
//
// Quality collection is a snapshot over every workflow the backend knows
// about and keeps no checkpoint.
package collector

import (
	"context"

	"codeberg.org/mutker/metrics-exporter/internal/checkpoint"
	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"codeberg.org/mutker/metrics-exporter/internal/metrics"
	"codeberg.org/mutker/metrics-exporter/internal/workflow"
	"github.com/jonboulle/clockwork"
)

type Collector struct {
	cfg         Config
	source      EventSource
	sink        metrics.Sink
	checkpoints *checkpoint.Store
	clock       clockwork.Clock
	log         logger.Logger
}

func New(cfg Config, source EventSource, sink metrics.Sink, checkpoints *checkpoint.Store, opts ...Option) (*Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil || sink == nil || checkpoints == nil {
		return nil, errFactory.WithMessage(ErrInvalidConfig, "event source, sink and checkpoint store are required")
	}

	o := options{
		clock: clockwork.NewRealClock(),
		log:   logger.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Collector{
		cfg:         cfg,
		source:      source,
		sink:        sink,
		checkpoints: checkpoints,
		clock:       o.clock,
		log:         o.log,
	}, nil
}

// query runs one bounded read against the backend.
func (c *Collector) query(ctx context.Context, q workflow.Query) ([]workflow.Event, error) {
	errFactory := errors.New()

	qctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	q.Instance = c.cfg.Instance
	q.Namespace = c.cfg.Namespace

	events, err := c.source.QueryEvents(qctx, q)
	if err != nil {
		if qctx.Err() == context.DeadlineExceeded && !errors.HasCode(err, ErrTimeout) {
			return nil, errFactory.Wrap(ErrTimeout, err)
		}
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	return events, nil
}
