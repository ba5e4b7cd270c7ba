// Package history stores an audit trail of job runs in sqlite.
package history

import (
	"context"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/job"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
)

type service struct {
	repo Repository
	log  logger.Logger
}

type noopRecorder struct{}

// NewService opens the history database. When history is disabled it
// returns a recorder that drops every run.
func NewService(cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}
	if log == nil {
		log = logger.Default()
	}

	if !cfg.Enabled {
		log.Debug().Msg("Run history disabled, using no-op recorder")
		return noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	return &service{repo: repo, log: log}, nil
}

// ObserveRun stores result. Storage failures are logged and never fail
// the job.
func (s *service) ObserveRun(ctx context.Context, result job.Result) {
	if result.RunID == "" || result.Job == "" {
		s.log.Warn().Str("job", result.Job).Msg("Dropping job run without id")
		return
	}

	// a canceled run is still worth recording
	ctx = context.WithoutCancel(ctx)

	if err := s.repo.Store(ctx, RunFromResult(result)); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			s.log.ErrorWithCode(appErr).Str("run_id", result.RunID).Msg("Failed to record job run")
			return
		}
		s.log.Error().Err(err).Str("run_id", result.RunID).Msg("Failed to record job run")
	}
}

func (s *service) Recent(ctx context.Context, limit int) ([]Run, error) {
	errFactory := errors.New()

	if limit <= 0 {
		return nil, errFactory.WithData(ErrInvalidRun, limit)
	}

	select {
	case <-ctx.Done():
		return nil, errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	return s.repo.Recent(ctx, limit)
}

func (s *service) Close() error {
	return s.repo.Close()
}

func (noopRecorder) ObserveRun(context.Context, job.Result) {}

func (noopRecorder) Recent(context.Context, int) ([]Run, error) {
	return nil, nil
}

func (noopRecorder) Close() error {
	return nil
}
