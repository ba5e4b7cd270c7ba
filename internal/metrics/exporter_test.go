package metrics

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/job"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExporter(t *testing.T, cfg Config) *Exporter {
	t.Helper()
	cfg.GoCollectors = false
	e, err := NewExporter(cfg)
	require.NoError(t, err)
	return e
}

func TestSetIsLastWriteWins(t *testing.T) {
	e := newTestExporter(t, DefaultConfig())
	labels := Labels{LabelService: "adviser"}

	require.NoError(t, e.Set(WorkflowQuality, 0.5, labels))
	require.NoError(t, e.Set(WorkflowQuality, 0.75, labels))

	assert.InDelta(t, 0.75, testutil.ToFloat64(e.gauges[WorkflowQuality].WithLabelValues("adviser")), 1e-9)
}

func TestObserveAccumulates(t *testing.T) {
	e := newTestExporter(t, DefaultConfig())
	labels := Labels{LabelService: "adviser"}

	require.NoError(t, e.Observe(WorkflowLatencySeconds, 45, labels))
	require.NoError(t, e.Observe(WorkflowLatencySeconds, 20, labels))

	expected := `
# HELP thoth_workflow_latency_seconds Time between start and completion of workflows.
# TYPE thoth_workflow_latency_seconds histogram
thoth_workflow_latency_seconds_bucket{service="adviser",le="5"} 0
thoth_workflow_latency_seconds_bucket{service="adviser",le="10"} 0
thoth_workflow_latency_seconds_bucket{service="adviser",le="30"} 1
thoth_workflow_latency_seconds_bucket{service="adviser",le="60"} 2
thoth_workflow_latency_seconds_bucket{service="adviser",le="120"} 2
thoth_workflow_latency_seconds_bucket{service="adviser",le="300"} 2
thoth_workflow_latency_seconds_bucket{service="adviser",le="600"} 2
thoth_workflow_latency_seconds_bucket{service="adviser",le="1200"} 2
thoth_workflow_latency_seconds_bucket{service="adviser",le="1800"} 2
thoth_workflow_latency_seconds_bucket{service="adviser",le="3600"} 2
thoth_workflow_latency_seconds_bucket{service="adviser",le="+Inf"} 2
thoth_workflow_latency_seconds_sum{service="adviser"} 65
thoth_workflow_latency_seconds_count{service="adviser"} 2
`
	err := testutil.GatherAndCompare(e.Registry(), strings.NewReader(expected), WorkflowLatencySeconds)
	assert.NoError(t, err)
}

func TestPublishErrors(t *testing.T) {
	e := newTestExporter(t, DefaultConfig())
	labels := Labels{LabelService: "adviser"}

	err := e.Set("no_such_metric", 1, labels)
	assert.True(t, errors.HasCode(err, ErrUnknownMetric))

	err = e.Set(WorkflowLatencySeconds, 1, labels)
	assert.True(t, errors.HasCode(err, ErrWrongKind))

	err = e.Observe(WorkflowQuality, 1, labels)
	assert.True(t, errors.HasCode(err, ErrWrongKind))

	err = e.Set(WorkflowQuality, 1, Labels{"unexpected": "x"})
	assert.True(t, errors.HasCode(err, ErrInvalidLabels))

	err = e.Set(WorkflowQuality, math.NaN(), labels)
	assert.True(t, errors.HasCode(err, ErrInvalidValue))

	// nothing above may leave a series behind
	assert.Zero(t, testutil.CollectAndCount(e.gauges[WorkflowQuality]))
}

func TestObserveRun(t *testing.T) {
	e := newTestExporter(t, DefaultConfig())
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	e.ObserveRun(context.Background(), job.Result{
		Job:      "adviser.quality",
		Started:  started,
		Finished: started.Add(2 * time.Second),
		Outcome:  job.OutcomeSuccess,
	})
	e.ObserveRun(context.Background(), job.Result{
		Job:      "adviser.quality",
		Started:  started,
		Finished: started.Add(time.Second),
		Outcome:  job.OutcomeFailure,
	})

	assert.InDelta(t, 1, testutil.ToFloat64(e.jobRuns.WithLabelValues("adviser.quality", "success")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(e.jobRuns.WithLabelValues("adviser.quality", "failure")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(e.jobDuration))
}

func TestPush(t *testing.T) {
	var calls int32
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.PushgatewayURL = srv.URL
	e := newTestExporter(t, cfg)
	require.NoError(t, e.Set(WorkflowQuality, 1, Labels{LabelService: "adviser"}))

	require.NoError(t, e.Push(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "/metrics/job/"+defaultPushJob, path)
}

func TestPushDisabled(t *testing.T) {
	e := newTestExporter(t, DefaultConfig())
	err := e.Push(context.Background())
	assert.True(t, errors.HasCode(err, ErrPushDisabled))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.PushgatewayURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg.PushgatewayURL = "http://pushgateway:9091"
	cfg.PushJob = ""
	assert.Error(t, cfg.Validate())
}
