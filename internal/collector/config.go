package collector

import (
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
)

const defaultQueryTimeout = 30 * time.Second

// Config is shared by every collection of the process.
type Config struct {
	Instance     string
	Namespace    string
	QueryTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{QueryTimeout: defaultQueryTimeout}
}

func (c Config) Validate() error {
	if c.QueryTimeout <= 0 {
		return errors.New().WithData(ErrInvalidConfig, struct {
			Field string
			Value string
		}{
			Field: "query_timeout",
			Value: c.QueryTimeout.String(),
		})
	}
	return nil
}
