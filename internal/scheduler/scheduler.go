// Package scheduler drives registered jobs on cron schedules.
package scheduler

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/job"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"github.com/robfig/cron/v3"
)

// Runner runs a single job.
type Runner interface {
	Run(ctx context.Context, j *job.Job) job.Result
}

type Scheduler struct {
	cron        *cron.Cron
	runner      Runner
	defaultSpec string
	log         logger.Logger

	mu      sync.Mutex
	ctx     context.Context
	started bool
	entries map[string]cron.EntryID
}

// New returns a stopped scheduler. Jobs without their own schedule use
// defaultSpec.
func New(defaultSpec string, runner Runner, log logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Default()
	}
	if _, err := cron.ParseStandard(defaultSpec); err != nil {
		return nil, errors.New().Wrap(ErrInvalidSchedule, err)
	}

	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		// a run still in flight makes the next tick a no-op, so one job
		// never overlaps with itself
		cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		),
	)

	return &Scheduler{
		cron:        c,
		runner:      runner,
		defaultSpec: defaultSpec,
		log:         log,
		ctx:         context.Background(),
		entries:     make(map[string]cron.EntryID),
	}, nil
}

// Add schedules j. An empty spec selects the default schedule.
func (s *Scheduler) Add(j *job.Job, spec string) error {
	errFactory := errors.New()

	if spec == "" {
		spec = s.defaultSpec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errFactory.WithData(ErrAlreadyStarted, j.Name())
	}

	id, err := s.cron.AddFunc(spec, func() {
		s.runner.Run(s.runContext(), j)
	})
	if err != nil {
		return errFactory.WithData(ErrInvalidSchedule, struct {
			Job      string
			Schedule string
			Error    string
		}{
			Job:      j.Name(),
			Schedule: spec,
			Error:    err.Error(),
		})
	}
	s.entries[j.Name()] = id

	s.log.Debug().
		Str("job", j.Name()).
		Str("schedule", spec).
		Msg("Job scheduled")
	return nil
}

// Next returns the next activation of the named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start begins firing jobs. Runs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info().Int("jobs", len(s.entries)).Msg("Scheduler started")
}

// Stop prevents new runs and waits for running ones until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.log.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.New().Wrap(ErrStopTimeout, ctx.Err())
	}
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
