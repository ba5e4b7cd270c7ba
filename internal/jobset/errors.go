package jobset

import "codeberg.org/mutker/metrics-exporter/internal/errors"

const (
	ErrInvalidService = errors.ErrorCode("jobset_invalid_service")
	ErrMissingDeps    = errors.ErrorCode("jobset_missing_dependencies")
	ErrCountFailed    = errors.ErrorCode("jobset_count_failed")
	ErrPublishFailed  = errors.ErrorCode("jobset_publish_failed")
)
