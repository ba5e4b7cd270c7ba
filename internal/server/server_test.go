package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/health"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"codeberg.org/mutker/metrics-exporter/internal/metrics"
	"codeberg.org/mutker/metrics-exporter/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticChecker struct {
	name string
	ok   bool
}

func (c staticChecker) ServiceName() string { return c.name }
func (c staticChecker) Ok() (bool, string)  { return c.ok, c.name + " checked" }

func newExporter(t *testing.T) *metrics.Exporter {
	t.Helper()

	cfg := metrics.DefaultConfig()
	cfg.GoCollectors = false
	exp, err := metrics.NewExporter(cfg)
	require.NoError(t, err)
	return exp
}

func TestMetricsEndpoint(t *testing.T) {
	exp := newExporter(t)
	require.NoError(t, exp.Set(metrics.WorkflowQuality, 0.75, metrics.Labels{metrics.LabelService: "adviser"}))

	srv := server.New(":0", exp.Registry(), nil, logger.Nop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `thoth_workflow_quality{service="adviser"} 0.75`)
}

func TestHealthEndpoint(t *testing.T) {
	hr := health.NewRegister()
	hr.Add(staticChecker{name: "KnowledgeGraph", ok: true})

	srv := server.New(":0", newExporter(t).Registry(), hr, logger.Nop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	hr.Add(staticChecker{name: "Prometheus", ok: false})

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]health.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body["Prometheus"].Healthy)
	assert.True(t, body["KnowledgeGraph"].Healthy)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := server.New(ln.Addr().String(), newExporter(t).Registry(), nil, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
