// Package health aggregates the readiness of the exporter's backends.
package health

import "sync"

// Checker is a backend that can report whether it is reachable.
type Checker interface {
	ServiceName() string
	Ok() (bool, string)
}

// Status is the result of one check.
type Status struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

type Register struct {
	mu       sync.RWMutex
	checkers []Checker
}

func NewRegister() *Register {
	return &Register{}
}

func (r *Register) Add(c ...Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, c...)
}

// CheckAll runs every check once and reports whether all passed.
func (r *Register) CheckAll() (map[string]Status, bool) {
	r.mu.RLock()
	checkers := make([]Checker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	results := make(map[string]Status, len(checkers))
	healthy := true
	for _, c := range checkers {
		ok, msg := c.Ok()
		results[c.ServiceName()] = Status{Healthy: ok, Message: msg}
		healthy = healthy && ok
	}
	return results, healthy
}
