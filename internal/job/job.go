// Package job keeps the set of metric collection jobs and runs them.
package job

import (
	"context"
	"sync"
)

// Func is the body of a job. It must be safe to call again at any time:
// a repeated run may redo work but must not corrupt state.
type Func func(ctx context.Context) error

// Job is a named, independently schedulable unit of collection work.
type Job struct {
	name   string
	family string
	fn     Func

	// held for the whole run so a job never overlaps with itself
	mu sync.Mutex
}

func (j *Job) Name() string {
	return j.name
}

// Family is the service the job collects for.
func (j *Job) Family() string {
	return j.family
}
