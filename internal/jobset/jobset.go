// Package jobset registers the collection jobs of every tracked service.
package jobset

import (
	"context"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/collector"
	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/graph"
	"codeberg.org/mutker/metrics-exporter/internal/job"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"codeberg.org/mutker/metrics-exporter/internal/metrics"
)

const (
	SuffixStackCount     = "software_stack_count"
	SuffixEvaluationTime = "evaluation_time"
	SuffixQuality        = "quality"

	defaultCountTimeout = 30 * time.Second
)

// Service is one tracked backend service.
type Service struct {
	Name string
	// StackType is the knowledge graph stack type the service produces.
	// Empty disables the count job.
	StackType graph.StackType
	// Schedule overrides the driver's default schedule for the service's
	// jobs.
	Schedule string
}

// DefaultServices are the services tracked when none are configured.
func DefaultServices() []Service {
	return []Service{
		{Name: "adviser", StackType: graph.StackTypeAdvised},
		{Name: "qeb-hwt", StackType: graph.StackTypeUser},
	}
}

// Counter counts records in the knowledge graph.
type Counter interface {
	CountRecords(ctx context.Context, f graph.Filter) (int64, error)
}

// Collector derives workflow metrics from the monitoring backend.
type Collector interface {
	CollectDuration(ctx context.Context, service string) (collector.DurationResult, error)
	CollectQuality(ctx context.Context, service string) (collector.QualityResult, error)
}

// Deps are the shared collaborators of every job.
type Deps struct {
	Counter      Counter
	Collector    Collector
	Sink         metrics.Sink
	CountTimeout time.Duration
	Log          logger.Logger
}

// Name builds the job name for a service and job suffix.
func Name(service, suffix string) string {
	return service + "." + suffix
}

// Register adds the jobs of every service to reg and returns the schedule
// override of each job that has one.
func Register(reg *job.Registry, deps Deps, services []Service) (map[string]string, error) {
	errFactory := errors.New()

	if reg == nil || deps.Collector == nil || deps.Sink == nil {
		return nil, errFactory.WithMessage(ErrMissingDeps, "registry, collector and sink are required")
	}
	if deps.CountTimeout <= 0 {
		deps.CountTimeout = defaultCountTimeout
	}
	if deps.Log == nil {
		deps.Log = logger.Default()
	}

	schedules := make(map[string]string)
	for _, svc := range services {
		if err := validate(svc, deps); err != nil {
			return nil, err
		}

		var names []string
		if svc.StackType != "" {
			name := Name(svc.Name, SuffixStackCount)
			if _, err := reg.Register(name, svc.Name, countJob(deps, svc)); err != nil {
				return nil, err
			}
			names = append(names, name)
		}

		name := Name(svc.Name, SuffixEvaluationTime)
		if _, err := reg.Register(name, svc.Name, durationJob(deps, svc.Name)); err != nil {
			return nil, err
		}
		names = append(names, name)

		name = Name(svc.Name, SuffixQuality)
		if _, err := reg.Register(name, svc.Name, qualityJob(deps, svc.Name)); err != nil {
			return nil, err
		}
		names = append(names, name)

		if svc.Schedule != "" {
			for _, n := range names {
				schedules[n] = svc.Schedule
			}
		}
	}

	return schedules, nil
}

func validate(svc Service, deps Deps) error {
	errFactory := errors.New()

	if svc.Name == "" {
		return errFactory.WithMessage(ErrInvalidService, "service name is required")
	}
	if svc.StackType == "" {
		return nil
	}
	if !svc.StackType.IsValid() {
		return errFactory.WithData(ErrInvalidService, struct {
			Service   string
			StackType string
		}{
			Service:   svc.Name,
			StackType: string(svc.StackType),
		})
	}
	if deps.Counter == nil {
		return errFactory.WithMessage(ErrMissingDeps, "knowledge graph counter is required for "+svc.Name)
	}
	return nil
}

func countJob(deps Deps, svc Service) job.Func {
	labels := metrics.Labels{
		metrics.LabelService:   svc.Name,
		metrics.LabelStackType: string(svc.StackType),
	}

	return func(ctx context.Context) error {
		errFactory := errors.New()

		ctx, cancel := context.WithTimeout(ctx, deps.CountTimeout)
		defer cancel()

		count, err := deps.Counter.CountRecords(ctx, graph.Filter{StackType: svc.StackType})
		if err != nil {
			return errFactory.Wrap(ErrCountFailed, err)
		}

		if err := deps.Sink.Set(metrics.GraphDBSoftwareStacksRecords, float64(count), labels); err != nil {
			return errFactory.Wrap(ErrPublishFailed, err)
		}

		deps.Log.Debug().
			Str("service", svc.Name).
			Str("stack_type", string(svc.StackType)).
			Int64("count", count).
			Msg("Counted software stacks")
		return nil
	}
}

func durationJob(deps Deps, service string) job.Func {
	return func(ctx context.Context) error {
		_, err := deps.Collector.CollectDuration(ctx, service)
		return err
	}
}

func qualityJob(deps Deps, service string) job.Func {
	return func(ctx context.Context) error {
		_, err := deps.Collector.CollectQuality(ctx, service)
		return err
	}
}
