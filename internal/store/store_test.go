package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidsum/internal/models"
)

func TestCreateAndGet(t *testing.T) {
	s := New()

	job, err := s.Create("job-1", "lecture.mp4")
	require.NoError(t, err)
	assert.Equal(t, models.StageQueued, job.Stage)
	assert.Equal(t, 0, job.Progress)
	assert.False(t, job.Cancelled)

	got, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, "lecture.mp4", got.SourceName)

	_, err = s.Create("job-1", "dup.mp4")
	assert.ErrorIs(t, err, models.ErrJobExists)

	_, err = s.Get("nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateAppliesMutation(t *testing.T) {
	s := New()
	_, err := s.Create("job-1", "a.mp4")
	require.NoError(t, err)

	err = s.Update("job-1", func(j *models.Job) {
		j.Stage = models.StageTranscoding
		j.Progress = 10
	})
	require.NoError(t, err)

	got, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageTranscoding, got.Stage)
	assert.Equal(t, 10, got.Progress)

	assert.ErrorIs(t, s.Update("nope", func(j *models.Job) {}), models.ErrNotFound)
}

func TestUpdateRejectsBackwardTransition(t *testing.T) {
	s := New()
	_, err := s.Create("job-1", "a.mp4")
	require.NoError(t, err)

	require.NoError(t, s.Update("job-1", func(j *models.Job) { j.Stage = models.StageRecognizing }))
	require.NoError(t, s.Update("job-1", func(j *models.Job) { j.Stage = models.StageTranscoding }))

	got, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageRecognizing, got.Stage, "backward transition must be dropped")
}

func TestUpdateKeepsTerminalStage(t *testing.T) {
	s := New()
	_, err := s.Create("job-1", "a.mp4")
	require.NoError(t, err)

	require.NoError(t, s.Update("job-1", func(j *models.Job) { j.Stage = models.StageFailed }))
	require.NoError(t, s.Update("job-1", func(j *models.Job) { j.Stage = models.StageFinished }))

	got, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageFailed, got.Stage)
}

func TestConcurrentUpdatesToDifferentJobs(t *testing.T) {
	s := New()
	const jobs = 16
	const updates = 100

	for i := 0; i < jobs; i++ {
		_, err := s.Create(fmt.Sprintf("job-%d", i), "a.mp4")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for n := 0; n < updates; n++ {
				s.Update(id, func(j *models.Job) { j.Progress++ })
			}
		}(fmt.Sprintf("job-%d", i))
	}
	wg.Wait()

	for i := 0; i < jobs; i++ {
		got, err := s.Get(fmt.Sprintf("job-%d", i))
		require.NoError(t, err)
		assert.Equal(t, updates, got.Progress)
	}
}

func TestAppendEventAndEventsSince(t *testing.T) {
	s := New()
	_, err := s.Create("job-1", "a.mp4")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ev, err := s.AppendEvent("job-1", models.StatusEvent(fmt.Sprintf("step %d", i), true))
		require.NoError(t, err)
		assert.Equal(t, i+1, ev.Seq)
	}

	all, err := s.EventsSince("job-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "step 0", all[0].Step)
	assert.Equal(t, "step 2", all[2].Step)

	tail, err := s.EventsSince("job-1", 2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, 3, tail[0].Seq)

	empty, err := s.EventsSince("job-1", 3)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.EventsSince("nope", 0)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := New()
	for i := 0; i < 3; i++ {
		_, err := s.Create(fmt.Sprintf("job-%d", i), "a.mp4")
		require.NoError(t, err)
	}

	jobs := s.List()
	require.Len(t, jobs, 3)
	for i := 1; i < len(jobs); i++ {
		assert.False(t, jobs[i].CreatedAt.After(jobs[i-1].CreatedAt))
	}
}
