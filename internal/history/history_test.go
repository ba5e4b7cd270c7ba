package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/job"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) (Recorder, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "history.db")
	rec, err := NewService(Config{Enabled: true, DBPath: path}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })
	return rec, path
}

func result(id, name string, started time.Time, outcome job.Outcome, err error) job.Result {
	return job.Result{
		RunID:    id,
		Job:      name,
		Family:   "adviser",
		Started:  started,
		Finished: started.Add(1500 * time.Millisecond),
		Outcome:  outcome,
		Err:      err,
	}
}

func TestRecordAndRecent(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rec.ObserveRun(ctx, result("run-1", "adviser.quality", base, job.OutcomeSuccess, nil))
	rec.ObserveRun(ctx, result("run-2", "adviser.evaluation_time", base.Add(time.Minute), job.OutcomeFailure,
		errors.New().New(errors.ErrTimeout)))

	runs, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "adviser.evaluation_time", runs[0].Job)
	assert.Equal(t, job.OutcomeFailure, runs[0].Outcome)
	assert.Equal(t, "Operation timed out", runs[0].Error)
	assert.Equal(t, base.Add(time.Minute), runs[0].Started)
	assert.Equal(t, base.Add(time.Minute+1500*time.Millisecond), runs[0].Finished)

	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, "adviser", runs[1].Family)
	assert.Empty(t, runs[1].Error)

	runs, err = rec.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecentRejectsBadLimit(t *testing.T) {
	rec, _ := newTestRecorder(t)

	_, err := rec.Recent(context.Background(), 0)
	assert.True(t, errors.HasCode(err, ErrInvalidRun))
}

func TestObserveRunIgnoresStorageErrors(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// duplicate run ids violate the primary key; the second write is dropped
	rec.ObserveRun(ctx, result("run-1", "adviser.quality", base, job.OutcomeSuccess, nil))
	rec.ObserveRun(ctx, result("run-1", "adviser.quality", base, job.OutcomeSuccess, nil))
	rec.ObserveRun(ctx, job.Result{Job: "adviser.quality"})

	runs, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestCanceledContextIsRecorded(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec.ObserveRun(ctx, result("run-1", "adviser.quality", time.Now(), job.OutcomeCanceled, context.Canceled))

	runs, err := rec.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, job.OutcomeCanceled, runs[0].Outcome)
}

func TestDisabledIsNoop(t *testing.T) {
	rec, err := NewService(Config{Enabled: false}, logger.Nop())
	require.NoError(t, err)

	rec.ObserveRun(context.Background(), result("run-1", "adviser.quality", time.Now(), job.OutcomeSuccess, nil))
	runs, err := rec.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, rec.Close())
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewService(Config{Enabled: true}, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidConfig))
}

func TestSchemaVersion(t *testing.T) {
	_, path := newTestRecorder(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestSchemaMismatchRecreates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	cfg := Config{Enabled: true, DBPath: path}

	rec, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)
	rec.ObserveRun(context.Background(), result("run-1", "adviser.quality", time.Now(), job.OutcomeSuccess, nil))
	require.NoError(t, rec.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE schema_versions SET version = ?`, SchemaVersion+41)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	rec, err = NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer rec.Close()

	runs, err := rec.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs, "history is not carried over an incompatible schema")

	backups, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}
