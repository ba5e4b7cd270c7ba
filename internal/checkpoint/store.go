// Package checkpoint keeps the upper bound of the last window each
// collector processed successfully.
package checkpoint

import (
	"sync"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"github.com/jonboulle/clockwork"
)

// Kind names the metric family a checkpoint belongs to.
type Kind string

const (
	KindDuration Kind = "duration"
	KindQuality  Kind = "quality"
)

// Key identifies one checkpoint.
type Key struct {
	Service string
	Kind    Kind
}

func (k Key) String() string {
	return k.Service + "/" + string(k.Kind)
}

// Store holds checkpoints in memory for the lifetime of the process.
// Checkpoints only move forward.
type Store struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	points map[Key]time.Time
}

func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Store{
		clock:  clock,
		points: make(map[Key]time.Time),
	}
}

// Get returns the checkpoint for key. An unknown key is seeded with the
// current time, so the first window starts now rather than backfilling.
func (s *Store) Get(key Key) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.points[key]; ok {
		return t
	}

	now := s.clock.Now()
	s.points[key] = now
	return now
}

// Advance moves the checkpoint for key to t. Moving it backwards is
// rejected and leaves the stored value untouched.
func (s *Store) Advance(key Key, t time.Time) error {
	errFactory := errors.New()

	if key.Service == "" || key.Kind == "" {
		return errFactory.WithData(ErrInvalidKey, key.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.points[key]; ok && t.Before(current) {
		return errFactory.WithData(ErrRegression, struct {
			Key     string
			Current time.Time
			Next    time.Time
		}{
			Key:     key.String(),
			Current: current,
			Next:    t,
		})
	}

	s.points[key] = t
	return nil
}

// Snapshot returns a copy of every checkpoint.
func (s *Store) Snapshot() map[Key]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Key]time.Time, len(s.points))
	for k, v := range s.points {
		out[k] = v
	}
	return out
}
