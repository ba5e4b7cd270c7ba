// Package monitoring reads workflow executions from Prometheus.
package monitoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"codeberg.org/mutker/metrics-exporter/internal/workflow"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// Client queries workflow series. It never writes to Prometheus.
type Client struct {
	cfg Config
	api v1.API
	log logger.Logger
	now func() time.Time
}

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Default()
	}

	client, err := api.NewClient(api.Config{
		Address:      cfg.URL,
		RoundTripper: newRoundTripper(cfg),
	})
	if err != nil {
		return nil, errFactory.Wrap(ErrClientInit, err)
	}

	log.Debug().
		Str("url", cfg.URL).
		Bool("insecure", cfg.Insecure).
		Bool("token", cfg.Token != "").
		Msg("Prometheus client initialized")

	return &Client{
		cfg: cfg,
		api: v1.NewAPI(client),
		log: log,
		now: time.Now,
	}, nil
}

// QueryEvents returns the workflows of q.Service. With a window, only
// workflows whose completion time falls inside it are returned; without
// one, every workflow that has a phase or a completion time is returned.
// Events are ordered by completion time, then name.
func (c *Client) QueryEvents(ctx context.Context, q workflow.Query) ([]workflow.Event, error) {
	at := c.now()
	if !q.Window.IsZero() {
		at = q.Window.End
	}
	selector := c.selector(q)

	completions, err := c.timestamps(ctx, c.cfg.CompletionMetric+selector, at)
	if err != nil {
		return nil, err
	}
	starts, err := c.timestamps(ctx, c.cfg.StartMetric+selector, at)
	if err != nil {
		return nil, err
	}
	phases, err := c.phases(ctx, c.cfg.PhaseMetric+selector+" == 1", at)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{}, len(completions))
	for name, end := range completions {
		if q.Window.IsZero() || q.Window.Contains(end) {
			names[name] = struct{}{}
		}
	}
	if q.Window.IsZero() {
		for name := range phases {
			names[name] = struct{}{}
		}
	}

	events := make([]workflow.Event, 0, len(names))
	for name := range names {
		events = append(events, workflow.Event{
			Name:  name,
			Start: starts[name],
			End:   completions[name],
			Phase: phases[name],
		})
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].End.Equal(events[j].End) {
			return events[i].End.Before(events[j].End)
		}
		return events[i].Name < events[j].Name
	})

	c.log.Debug().
		Str("service", q.Service).
		Time("at", at).
		Int("events", len(events)).
		Msg("Queried workflow events")

	return events, nil
}

// Ok reports whether Prometheus answers queries.
func (c *Client) Ok() (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HealthTimeout)
	defer cancel()

	if _, err := c.vector(ctx, "vector(1)", c.now()); err != nil {
		return false, fmt.Sprintf("Prometheus query failed: %v", err)
	}
	return true, "Prometheus is reachable"
}

func (c *Client) ServiceName() string {
	return "Prometheus"
}

func (c *Client) selector(q workflow.Query) string {
	matchers := make([]string, 0, 3)
	if q.Instance != "" {
		matchers = append(matchers, fmt.Sprintf("instance=%q", q.Instance))
	}
	if q.Namespace != "" {
		matchers = append(matchers, fmt.Sprintf("namespace=%q", q.Namespace))
	}
	matchers = append(matchers, fmt.Sprintf("%s=%q", c.cfg.ServiceLabel, q.Service))

	return "{" + strings.Join(matchers, ", ") + "}"
}

// timestamps maps workflow name to the unix timestamp carried as sample value.
func (c *Client) timestamps(ctx context.Context, query string, at time.Time) (map[string]time.Time, error) {
	vec, err := c.vector(ctx, query, at)
	if err != nil {
		return nil, err
	}

	out := make(map[string]time.Time, len(vec))
	for _, sample := range vec {
		name := string(sample.Metric[model.LabelName(c.cfg.NameLabel)])
		if name == "" {
			continue
		}
		ts := float64(sample.Value)
		if math.IsNaN(ts) || ts <= 0 {
			continue
		}
		out[name] = unixSeconds(ts)
	}
	return out, nil
}

func (c *Client) phases(ctx context.Context, query string, at time.Time) (map[string]workflow.Phase, error) {
	vec, err := c.vector(ctx, query, at)
	if err != nil {
		return nil, err
	}

	out := make(map[string]workflow.Phase, len(vec))
	for _, sample := range vec {
		name := string(sample.Metric[model.LabelName(c.cfg.NameLabel)])
		if name == "" {
			continue
		}
		out[name] = workflow.Phase(sample.Metric[model.LabelName(c.cfg.PhaseLabel)])
	}
	return out, nil
}

func (c *Client) vector(ctx context.Context, query string, at time.Time) (model.Vector, error) {
	errFactory := errors.New()

	value, warnings, err := c.api.Query(ctx, query, at)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errFactory.Wrap(ErrTimeout, err)
		}
		return nil, errFactory.WithData(ErrQueryFailed, struct {
			Query string
			Error string
		}{
			Query: query,
			Error: err.Error(),
		})
	}
	for _, w := range warnings {
		c.log.Warn().Str("query", query).Msg(w)
	}

	vec, ok := value.(model.Vector)
	if !ok {
		return nil, errFactory.WithData(ErrUnexpectedType, value.Type().String())
	}
	return vec, nil
}

func unixSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}
