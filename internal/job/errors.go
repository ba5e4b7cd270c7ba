package job

import "codeberg.org/mutker/metrics-exporter/internal/errors"

const (
	ErrDuplicate   = errors.ErrorCode("job_duplicate")
	ErrInvalidJob  = errors.ErrorCode("job_invalid")
	ErrNotFound    = errors.ErrorCode("job_not_found")
	ErrPanicked    = errors.ErrJobPanicked
	ErrRunCanceled = errors.ErrorCode("job_run_canceled")
)
