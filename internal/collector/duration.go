package collector

import (
	"context"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/checkpoint"
	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/metrics"
	"codeberg.org/mutker/metrics-exporter/internal/workflow"
)

// CollectDuration observes the run time of every workflow of service that
// completed in [checkpoint, now) and then advances the checkpoint to now.
// A quiet window publishes nothing and still advances.
func (c *Collector) CollectDuration(ctx context.Context, service string) (DurationResult, error) {
	errFactory := errors.New()
	key := checkpoint.Key{Service: service, Kind: checkpoint.KindDuration}

	window := workflow.Window{
		Start: c.checkpoints.Get(key),
		End:   c.clock.Now(),
	}
	if window.End.Before(window.Start) {
		return DurationResult{}, errFactory.WithData(ErrClockSkew, struct {
			Service    string
			Checkpoint time.Time
			Now        time.Time
		}{
			Service:    service,
			Checkpoint: window.Start,
			Now:        window.End,
		})
	}

	events, err := c.query(ctx, workflow.Query{Service: service, Window: window})
	if err != nil {
		return DurationResult{}, err
	}

	result := DurationResult{Window: window}
	labels := metrics.Labels{metrics.LabelService: service}

	var latest *workflow.Event
	for i := range events {
		e := &events[i]
		if !window.Contains(e.End) {
			continue
		}
		if e.Start.IsZero() || e.Duration() < 0 {
			result.Skipped++
			c.log.Warn().
				Str("service", service).
				Str("workflow", e.Name).
				Time("start", e.Start).
				Time("end", e.End).
				Msg("Skipping workflow without a usable start time")
			continue
		}

		if err := c.sink.Observe(metrics.WorkflowLatencySeconds, e.Duration().Seconds(), labels); err != nil {
			return DurationResult{}, errFactory.Wrap(ErrPublishFailed, err)
		}
		result.Observed++

		if latest == nil || !e.End.Before(latest.End) {
			latest = e
		}
	}

	if latest != nil {
		if err := c.sink.Set(metrics.WorkflowLastLatencySeconds, latest.Duration().Seconds(), labels); err != nil {
			return DurationResult{}, errFactory.Wrap(ErrPublishFailed, err)
		}
	}

	if err := c.checkpoints.Advance(key, window.End); err != nil {
		return DurationResult{}, errFactory.Wrap(ErrAdvanceFailed, err)
	}

	c.log.Debug().
		Str("service", service).
		Time("from", window.Start).
		Time("to", window.End).
		Int("observed", result.Observed).
		Int("skipped", result.Skipped).
		Msg("Collected workflow durations")

	return result, nil
}
