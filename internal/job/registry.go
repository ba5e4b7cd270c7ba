package job

import (
	"sync"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
)

// Registry holds every job known to the process in registration order.
// It is populated at startup, before the first job runs.
type Registry struct {
	mu    sync.RWMutex
	jobs  []*Job
	index map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]*Job),
	}
}

// Register adds a job. Names are unique; registering a name twice fails
// and keeps the first registration.
func (r *Registry) Register(name, family string, fn Func) (*Job, error) {
	errFactory := errors.New()

	if name == "" || fn == nil {
		return nil, errFactory.WithData(ErrInvalidJob, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[name]; ok {
		return nil, errFactory.WithData(ErrDuplicate, name)
	}

	j := &Job{name: name, family: family, fn: fn}
	r.jobs = append(r.jobs, j)
	r.index[name] = j

	return j, nil
}

// Jobs returns the registered jobs in registration order.
func (r *Registry) Jobs() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// Names returns the registered job names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.jobs))
	for _, j := range r.jobs {
		names = append(names, j.name)
	}
	return names
}

func (r *Registry) Get(name string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.index[name]
	if !ok {
		return nil, errors.New().WithData(ErrNotFound, name)
	}
	return j, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
