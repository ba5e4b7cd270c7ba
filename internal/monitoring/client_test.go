package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"codeberg.org/mutker/metrics-exporter/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	labels map[string]string
	value  float64
}

// fakePrometheus answers instant queries by metric name prefix.
type fakePrometheus struct {
	mu      sync.Mutex
	series  map[string][]sample
	queries []string
	auth    []string
	status  int
	delay   time.Duration
}

func (f *fakePrometheus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.FormValue("query")

	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	status, delay := f.status, f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":"error","errorType":"internal","error":"boom"}`))
		return
	}

	type result struct {
		Metric map[string]string `json:"metric"`
		Value  [2]any            `json:"value"`
	}
	results := []result{}
	for metric, samples := range f.series {
		if !strings.HasPrefix(query, metric+"{") {
			continue
		}
		for _, s := range samples {
			results = append(results, result{
				Metric: s.labels,
				Value:  [2]any{1714564800, strconv.FormatFloat(s.value, 'f', -1, 64)},
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data": map[string]any{
			"resultType": "vector",
			"result":     results,
		},
	})
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func unix(d time.Duration) float64 {
	return float64(base.Add(d).Unix())
}

func newTestClient(t *testing.T, fake *fakePrometheus) *Client {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.Token = "secret"
	cfg.HealthTimeout = time.Second

	c, err := NewClient(cfg, logger.Nop())
	require.NoError(t, err)
	c.now = func() time.Time { return base.Add(10 * time.Minute) }
	return c
}

func adviserSeries() map[string][]sample {
	name := func(n string) map[string]string { return map[string]string{"name": n} }
	phase := func(n, p string) map[string]string { return map[string]string{"name": n, "phase": p} }

	return map[string][]sample{
		defaultCompletionMetric: {
			{name("adviser-a"), unix(30 * time.Second)},
			{name("adviser-b"), unix(50 * time.Second)},
			{name("adviser-c"), unix(90 * time.Second)},
		},
		defaultStartMetric: {
			{name("adviser-a"), unix(-15 * time.Second)},
			{name("adviser-b"), unix(30 * time.Second)},
			{name("adviser-c"), unix(60 * time.Second)},
			{name("adviser-d"), unix(100 * time.Second)},
		},
		defaultPhaseMetric: {
			{phase("adviser-a", "Succeeded"), 1},
			{phase("adviser-b", "Failed"), 1},
			{phase("adviser-c", "Succeeded"), 1},
			{phase("adviser-d", "Running"), 1},
		},
	}
}

func TestQueryEventsWindowed(t *testing.T) {
	fake := &fakePrometheus{series: adviserSeries()}
	c := newTestClient(t, fake)

	events, err := c.QueryEvents(context.Background(), workflow.Query{
		Service:   "adviser",
		Instance:  "prom-0",
		Namespace: "thoth-backend",
		Window:    workflow.Window{Start: base, End: base.Add(time.Minute)},
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "adviser-a", events[0].Name)
	assert.Equal(t, 45*time.Second, events[0].Duration())
	assert.Equal(t, workflow.PhaseSucceeded, events[0].Phase)

	assert.Equal(t, "adviser-b", events[1].Name)
	assert.Equal(t, 20*time.Second, events[1].Duration())
	assert.Equal(t, workflow.PhaseFailed, events[1].Phase)

	require.Len(t, fake.queries, 3)
	assert.Equal(t,
		`argo_workflow_completion_time{instance="prom-0", namespace="thoth-backend", label_component="adviser"}`,
		fake.queries[0])
	assert.Equal(t,
		`argo_workflow_status_phase{instance="prom-0", namespace="thoth-backend", label_component="adviser"} == 1`,
		fake.queries[2])
	for _, auth := range fake.auth {
		assert.Equal(t, "Bearer secret", auth)
	}
}

func TestQueryEventsUnwindowedIncludesRunning(t *testing.T) {
	c := newTestClient(t, &fakePrometheus{series: adviserSeries()})

	events, err := c.QueryEvents(context.Background(), workflow.Query{Service: "adviser"})
	require.NoError(t, err)
	require.Len(t, events, 4)

	// still running, no completion time, sorts first
	assert.Equal(t, "adviser-d", events[0].Name)
	assert.True(t, events[0].End.IsZero())
	assert.Equal(t, workflow.PhaseRunning, events[0].Phase)
}

func TestQueryEventsBackendError(t *testing.T) {
	c := newTestClient(t, &fakePrometheus{series: adviserSeries(), status: http.StatusInternalServerError})

	_, err := c.QueryEvents(context.Background(), workflow.Query{Service: "adviser"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrQueryFailed))
}

func TestQueryEventsTimeout(t *testing.T) {
	c := newTestClient(t, &fakePrometheus{series: adviserSeries(), delay: 200 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.QueryEvents(ctx, workflow.Query{Service: "adviser"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrTimeout))
}

func TestOk(t *testing.T) {
	c := newTestClient(t, &fakePrometheus{series: adviserSeries()})
	ok, _ := c.Ok()
	assert.True(t, ok)
	assert.Equal(t, "Prometheus", c.ServiceName())

	broken := newTestClient(t, &fakePrometheus{status: http.StatusInternalServerError})
	ok, msg := broken.Ok()
	assert.False(t, ok)
	assert.Contains(t, msg, "Prometheus query failed")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.URL = "https://prometheus.example.com"
	assert.NoError(t, cfg.Validate())

	cfg.PhaseLabel = ""
	assert.Error(t, cfg.Validate())
}

func TestUnixSeconds(t *testing.T) {
	got := unixSeconds(1714564830.5)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 30, int(500*time.Millisecond), time.UTC), got)
}
