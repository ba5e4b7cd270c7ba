package history

import (
	"context"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/job"
)

// Recorder keeps an audit trail of job runs.
type Recorder interface {
	job.Observer
	Recent(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Run is one stored job run.
type Run struct {
	ID       string
	Job      string
	Family   string
	Started  time.Time
	Finished time.Time
	Outcome  job.Outcome
	Error    string
}

// RunFromResult converts a runner result into its stored form.
func RunFromResult(r job.Result) Run {
	run := Run{
		ID:       r.RunID,
		Job:      r.Job,
		Family:   r.Family,
		Started:  r.Started,
		Finished: r.Finished,
		Outcome:  r.Outcome,
	}
	if r.Err != nil {
		run.Error = r.Err.Error()
	}
	return run
}

type Repository interface {
	Store(ctx context.Context, run Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
