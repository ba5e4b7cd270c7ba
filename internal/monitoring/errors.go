package monitoring

import "codeberg.org/mutker/metrics-exporter/internal/errors"

const (
	ErrInvalidConfig  = errors.ErrorCode("monitoring_invalid_config")
	ErrClientInit     = errors.ErrorCode("monitoring_client_init_failed")
	ErrQueryFailed    = errors.ErrorCode("monitoring_query_failed")
	ErrUnexpectedType = errors.ErrorCode("monitoring_unexpected_result_type")
	ErrTimeout        = errors.ErrTimeout
)
