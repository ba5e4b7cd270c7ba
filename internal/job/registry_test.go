package job_test

import (
	"context"
	"testing"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func TestRegisterTwiceKeepsOneEntry(t *testing.T) {
	reg := job.NewRegistry()

	first, err := reg.Register("adviser.quality", "adviser", noop)
	require.NoError(t, err)

	_, err = reg.Register("adviser.quality", "adviser", noop)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, job.ErrDuplicate))

	jobs := reg.Jobs()
	require.Len(t, jobs, 1)
	assert.Same(t, first, jobs[0])
}

func TestJobsKeepRegistrationOrder(t *testing.T) {
	reg := job.NewRegistry()
	names := []string{
		"adviser.software_stack_count",
		"adviser.evaluation_time",
		"adviser.quality",
		"qeb-hwt.evaluation_time",
		"qeb-hwt.quality",
	}

	for _, name := range names {
		_, err := reg.Register(name, "svc", noop)
		require.NoError(t, err)
	}

	assert.Equal(t, names, reg.Names())
	assert.Equal(t, len(names), reg.Len())

	jobs := reg.Jobs()
	for i, j := range jobs {
		assert.Equal(t, names[i], j.Name())
		assert.Equal(t, "svc", j.Family())
	}
}

func TestJobsReturnsCopy(t *testing.T) {
	reg := job.NewRegistry()
	_, err := reg.Register("a", "svc", noop)
	require.NoError(t, err)

	jobs := reg.Jobs()
	jobs[0] = nil

	assert.NotNil(t, reg.Jobs()[0])
}

func TestRegisterRejectsInvalidJobs(t *testing.T) {
	reg := job.NewRegistry()

	_, err := reg.Register("", "svc", noop)
	assert.True(t, errors.HasCode(err, job.ErrInvalidJob))

	_, err = reg.Register("a", "svc", nil)
	assert.True(t, errors.HasCode(err, job.ErrInvalidJob))

	assert.Zero(t, reg.Len())
}

func TestGet(t *testing.T) {
	reg := job.NewRegistry()
	registered, err := reg.Register("adviser.quality", "adviser", noop)
	require.NoError(t, err)

	got, err := reg.Get("adviser.quality")
	require.NoError(t, err)
	assert.Same(t, registered, got)

	_, err = reg.Get("missing")
	assert.True(t, errors.HasCode(err, job.ErrNotFound))
}
