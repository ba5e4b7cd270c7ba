package collector

import "codeberg.org/mutker/metrics-exporter/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("collector_invalid_config")
	ErrQueryFailed   = errors.ErrorCode("collector_query_failed")
	ErrTimeout       = errors.ErrTimeout
	ErrPublishFailed = errors.ErrorCode("collector_publish_failed")
	ErrClockSkew     = errors.ErrorCode("collector_clock_skew")
	ErrAdvanceFailed = errors.ErrorCode("collector_advance_failed")
)
