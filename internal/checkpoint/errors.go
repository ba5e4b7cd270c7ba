package checkpoint

import "codeberg.org/mutker/metrics-exporter/internal/errors"

const (
	ErrRegression = errors.ErrorCode("checkpoint_regression")
	ErrInvalidKey = errors.ErrorCode("checkpoint_invalid_key")
)
