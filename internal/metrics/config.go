package metrics

import (
	"net/url"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
)

const defaultPushJob = "metrics_exporter"

type Config struct {
	// PushgatewayURL, when set, receives the registry after a run-once pass.
	PushgatewayURL string
	PushJob        string
	// GoCollectors adds the Go runtime and process collectors to the registry.
	GoCollectors bool
}

func DefaultConfig() Config {
	return Config{
		PushJob:      defaultPushJob,
		GoCollectors: true,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.PushgatewayURL == "" {
		return nil
	}
	if _, err := url.ParseRequestURI(c.PushgatewayURL); err != nil {
		return errFactory.Wrap(ErrInvalidPushgateway, err)
	}
	if c.PushJob == "" {
		return errFactory.WithMessage(ErrInvalidPushgateway, "push job name is required")
	}
	return nil
}
