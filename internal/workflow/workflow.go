// Package workflow holds the read-only view of workflow executions
// reported by the monitoring backend.
package workflow

import "time"

// Phase is the status phase reported for a workflow.
type Phase string

const (
	PhasePending   Phase = "Pending"
	PhaseRunning   Phase = "Running"
	PhaseSucceeded Phase = "Succeeded"
	PhaseFailed    Phase = "Failed"
	PhaseError     Phase = "Error"
)

// Completed reports whether the phase is terminal.
func (p Phase) Completed() bool {
	switch p {
	case PhaseSucceeded, PhaseFailed, PhaseError:
		return true
	default:
		return false
	}
}

// Event is a single workflow execution as seen by the monitoring backend.
type Event struct {
	Name  string
	Start time.Time
	End   time.Time
	Phase Phase
}

// Duration is the elapsed time between start and completion.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// IsZero reports whether the window is unbounded.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Query selects the workflows of one service. A zero Window selects every
// workflow the backend still knows about.
type Query struct {
	Service   string
	Instance  string
	Namespace string
	Window    Window
}
