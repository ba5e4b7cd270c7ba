package graph

import "codeberg.org/mutker/metrics-exporter/internal/errors"

const (
	ErrInvalidConfig    = errors.ErrorCode("graph_invalid_config")
	ErrConnect          = errors.ErrorCode("graph_connect_failed")
	ErrQueryFailed      = errors.ErrorCode("graph_query_failed")
	ErrInvalidStackType = errors.ErrorCode("graph_invalid_stack_type")
	ErrTimeout          = errors.ErrTimeout
)
