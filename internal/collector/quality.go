package collector

import (
	"context"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/metrics"
	"codeberg.org/mutker/metrics-exporter/internal/workflow"
)

// CollectQuality sets the quality gauge of service to the fraction of
// completed workflows that succeeded. With no completed workflow the gauge
// keeps its previous value and Published is false.
func (c *Collector) CollectQuality(ctx context.Context, service string) (QualityResult, error) {
	events, err := c.query(ctx, workflow.Query{Service: service})
	if err != nil {
		return QualityResult{}, err
	}

	var result QualityResult
	for _, e := range events {
		if !e.Phase.Completed() {
			continue
		}
		result.Completed++
		if e.Phase == workflow.PhaseSucceeded {
			result.Succeeded++
		}
	}

	if result.Completed == 0 {
		c.log.Debug().
			Str("service", service).
			Msg("No completed workflows, quality left unchanged")
		return result, nil
	}

	result.Ratio = float64(result.Succeeded) / float64(result.Completed)

	labels := metrics.Labels{metrics.LabelService: service}
	if err := c.sink.Set(metrics.WorkflowQuality, result.Ratio, labels); err != nil {
		return QualityResult{}, errors.New().Wrap(ErrPublishFailed, err)
	}
	result.Published = true

	c.log.Debug().
		Str("service", service).
		Int("completed", result.Completed).
		Int("succeeded", result.Succeeded).
		Float64("quality", result.Ratio).
		Msg("Collected workflow quality")

	return result, nil
}
