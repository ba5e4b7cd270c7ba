package job

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Outcome labels how a run ended.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeCanceled Outcome = "canceled"
)

// Result describes one finished run.
type Result struct {
	RunID    string
	Job      string
	Family   string
	Started  time.Time
	Finished time.Time
	Outcome  Outcome
	Err      error
}

func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Observer is notified after every run.
type Observer interface {
	ObserveRun(ctx context.Context, result Result)
}

// Runner executes jobs and reports their results. Errors and panics stay
// inside the run that produced them.
type Runner struct {
	clock     clockwork.Clock
	log       logger.Logger
	observers []Observer
}

func NewRunner(clock clockwork.Clock, log logger.Logger, observers ...Observer) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Default()
	}

	return &Runner{
		clock:     clock,
		log:       log,
		observers: observers,
	}
}

// Run executes j, waiting for any in-flight run of the same job first.
func (r *Runner) Run(ctx context.Context, j *Job) Result {
	j.mu.Lock()
	defer j.mu.Unlock()

	result := Result{
		RunID:   uuid.NewString(),
		Job:     j.name,
		Family:  j.family,
		Started: r.clock.Now(),
	}

	if err := ctx.Err(); err != nil {
		result.Err = errors.New().Wrap(ErrRunCanceled, err)
	} else {
		result.Err = r.call(ctx, j)
	}
	result.Finished = r.clock.Now()

	switch {
	case result.Err == nil:
		result.Outcome = OutcomeSuccess
	case ctx.Err() != nil:
		result.Outcome = OutcomeCanceled
	default:
		result.Outcome = OutcomeFailure
	}

	r.report(result)

	for _, o := range r.observers {
		o.ObserveRun(ctx, result)
	}

	return result
}

// RunAll runs jobs one after another. A failing job does not stop the rest.
func (r *Runner) RunAll(ctx context.Context, jobs []*Job) []Result {
	results := make([]Result, 0, len(jobs))
	for _, j := range jobs {
		results = append(results, r.Run(ctx, j))
	}
	return results
}

func (r *Runner) call(ctx context.Context, j *Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.New().WithData(ErrPanicked, fmt.Sprintf("%s: %v", j.name, p))
		}
	}()

	return j.fn(ctx)
}

func (r *Runner) report(result Result) {
	log := r.log.With("job", result.Job)

	if result.Err == nil {
		log.Debug().
			Str("run_id", result.RunID).
			Dur("duration", result.Duration()).
			Msg("Job finished")
		return
	}

	var appErr errors.Error
	if errors.As(result.Err, &appErr) {
		log.ErrorWithCode(appErr).
			Str("run_id", result.RunID).
			Str("outcome", string(result.Outcome)).
			Msg("Job failed")
		return
	}

	log.Error().
		Err(result.Err).
		Str("run_id", result.RunID).
		Str("outcome", string(result.Outcome)).
		Msg("Job failed")
}
