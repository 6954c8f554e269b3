package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidsum/internal/models"
)

func TestJanitorEvictsTerminalJobs(t *testing.T) {
	s := New()

	spool := filepath.Join(t.TempDir(), "job-done_a.mp4")
	require.NoError(t, os.WriteFile(spool, []byte("payload"), 0o644))

	_, err := s.Create("job-done", "a.mp4")
	require.NoError(t, err)
	require.NoError(t, s.Update("job-done", func(j *models.Job) {
		j.Stage = models.StageFinished
		j.SpoolPath = spool
	}))

	_, err = s.Create("job-running", "b.mp4")
	require.NoError(t, err)
	require.NoError(t, s.Update("job-running", func(j *models.Job) {
		j.Stage = models.StageRecognizing
	}))

	time.Sleep(10 * time.Millisecond)

	j := NewJanitor(s, time.Millisecond, time.Minute)
	j.sweep()

	_, err = s.Get("job-done")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, statErr := os.Stat(spool)
	assert.True(t, os.IsNotExist(statErr), "spool file should be removed with the record")

	_, err = s.Get("job-running")
	assert.NoError(t, err, "active jobs must never be evicted")
}

func TestJanitorKeepsRecentTerminalJobs(t *testing.T) {
	s := New()
	_, err := s.Create("job-1", "a.mp4")
	require.NoError(t, err)
	require.NoError(t, s.Update("job-1", func(j *models.Job) { j.Stage = models.StageCancelled }))

	j := NewJanitor(s, time.Hour, time.Minute)
	j.sweep()

	_, err = s.Get("job-1")
	assert.NoError(t, err)
}
