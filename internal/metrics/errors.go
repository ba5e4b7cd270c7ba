package metrics

import "codeberg.org/mutker/metrics-exporter/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig      = errors.ErrInvalidConfig
	ErrInvalidPushgateway = errors.ErrorCode("metrics_invalid_pushgateway")

	// Registration Errors
	ErrRegisterFailed = errors.ErrInitMetrics

	// Publishing Errors
	ErrUnknownMetric = errors.ErrorCode("metrics_unknown_metric")
	ErrWrongKind     = errors.ErrorCode("metrics_wrong_kind")
	ErrInvalidLabels = errors.ErrorCode("metrics_invalid_labels")
	ErrInvalidValue  = errors.ErrorCode("metrics_invalid_value")
	ErrPushFailed    = errors.ErrPushMetrics
	ErrPushDisabled  = errors.ErrorCode("metrics_push_disabled")
)
