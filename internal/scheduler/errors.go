package scheduler

import "codeberg.org/mutker/metrics-exporter/internal/errors"

const (
	ErrInvalidSchedule = errors.ErrInvalidSchedule
	ErrAlreadyStarted  = errors.ErrorCode("scheduler_already_started")
	ErrStopTimeout     = errors.ErrorCode("scheduler_stop_timeout")
)
