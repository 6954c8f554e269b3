package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidsum/internal/models"
	"vidsum/internal/pipeline"
	"vidsum/internal/store"
)

type fakeTranscoder struct {
	err    error
	called bool
}

func (f *fakeTranscoder) Transcode(ctx context.Context, src, dst string) error {
	f.called = true
	return f.err
}

type fakeUploader struct {
	url    string
	err    error
	called bool
}

func (f *fakeUploader) Upload(ctx context.Context, localPath, objectKey string) (string, error) {
	f.called = true
	return f.url, f.err
}

type fakeRecognizer struct {
	transcript pipeline.Transcript
	err        error
	onCall     func()
	called     bool
}

func (f *fakeRecognizer) Recognize(ctx context.Context, fileURL string) (pipeline.Transcript, error) {
	f.called = true
	if f.onCall != nil {
		f.onCall()
	}
	return f.transcript, f.err
}

type fakeSummarizer struct {
	summary string
	err     error
	called  bool
}

func (f *fakeSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	f.called = true
	return f.summary, f.err
}

func happyAdapters() (Adapters, *fakeTranscoder, *fakeUploader, *fakeRecognizer, *fakeSummarizer) {
	tr := &fakeTranscoder{}
	up := &fakeUploader{url: "https://bucket.oss-cn-shanghai.aliyuncs.com/uploads/audio/a.mp3"}
	rec := &fakeRecognizer{transcript: pipeline.Transcript{Sentences: []string{"First sentence. ", "Second sentence."}}}
	sum := &fakeSummarizer{summary: "A short summary."}
	return Adapters{Transcoder: tr, Uploader: up, Recognizer: rec, Summarizer: sum}, tr, up, rec, sum
}

func newTestJob(t *testing.T, st *store.Store, id string) {
	t.Helper()
	_, err := st.Create(id, "lecture.mp4")
	require.NoError(t, err)
	require.NoError(t, st.Update(id, func(j *models.Job) {
		j.SpoolPath = "/tmp/does-not-matter.mp4"
	}))
}

func collectEvents(t *testing.T, st *store.Store, id string) []models.Event {
	t.Helper()
	events, err := st.EventsSince(id, 0)
	require.NoError(t, err)
	return events
}

func TestRunnerHappyPath(t *testing.T) {
	st := store.New()
	adapters, tr, up, rec, sum := happyAdapters()
	r := NewRunner(st, adapters, Timeouts{}, 0, "")

	newTestJob(t, st, "job-1")
	r.Run(context.Background(), "job-1", models.StageTranscoding)

	job, err := st.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageFinished, job.Stage)
	assert.Equal(t, models.ProgressDone, job.Progress)
	assert.Equal(t, "First sentence. Second sentence.", job.Transcript)
	assert.Equal(t, "A short summary.", job.Summary)
	assert.Empty(t, job.Error)
	assert.Equal(t, up.url, job.MediaURL)

	assert.True(t, tr.called)
	assert.True(t, up.called)
	assert.True(t, rec.called)
	assert.True(t, sum.called)

	events := collectEvents(t, st, "job-1")
	require.NotEmpty(t, events)
	doneCount := 0
	for i, ev := range events {
		assert.Equal(t, i+1, ev.Seq, "events must be strictly ordered")
		if ev.Done {
			doneCount++
		}
	}
	assert.Equal(t, 1, doneCount, "exactly one done event")
	assert.True(t, events[len(events)-1].Done, "done event must be last")
}

func TestRunnerPrepareModeEntry(t *testing.T) {
	st := store.New()
	adapters, tr, up, _, _ := happyAdapters()
	r := NewRunner(st, adapters, Timeouts{}, 0, "")

	newTestJob(t, st, "job-1")
	require.NoError(t, st.Update("job-1", func(j *models.Job) {
		j.MediaURL = "https://bucket.example/prepared.mp3"
	}))
	r.Run(context.Background(), "job-1", models.StageRecognizing)

	job, err := st.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageFinished, job.Stage)
	assert.False(t, tr.called, "transcode already happened at submit time")
	assert.False(t, up.called, "upload already happened at submit time")
}

func TestRunnerTranscodeFailure(t *testing.T) {
	st := store.New()
	adapters, tr, up, rec, _ := happyAdapters()
	tr.err = errors.New("ffmpeg: exit status 1")
	r := NewRunner(st, adapters, Timeouts{}, 0, "")

	newTestJob(t, st, "job-1")
	r.Run(context.Background(), "job-1", models.StageTranscoding)

	job, err := st.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageFailed, job.Stage)
	assert.Contains(t, job.Error, "transcode audio")
	assert.False(t, up.called)
	assert.False(t, rec.called)

	events := collectEvents(t, st, "job-1")
	last := events[len(events)-1]
	assert.True(t, last.Done)
	require.NotNil(t, last.Success)
	assert.False(t, *last.Success)
}

func TestRunnerEmptyTranscriptFails(t *testing.T) {
	st := store.New()
	adapters, _, _, rec, sum := happyAdapters()
	rec.transcript = pipeline.Transcript{Sentences: nil, Text: "   "}
	r := NewRunner(st, adapters, Timeouts{}, 0, "")

	newTestJob(t, st, "job-1")
	r.Run(context.Background(), "job-1", models.StageTranscoding)

	job, err := st.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageFailed, job.Stage)
	assert.Equal(t, "no speech content recognized", job.Error)
	assert.Empty(t, job.Transcript, "transcript must remain unset")
	assert.Empty(t, job.Summary)
	assert.False(t, sum.called)
}

func TestRunnerSummarizerErrorKeepsTranscript(t *testing.T) {
	st := store.New()
	adapters, _, _, _, sum := happyAdapters()
	sum.err = errors.New("api quota exceeded")
	r := NewRunner(st, adapters, Timeouts{}, 0, "")

	newTestJob(t, st, "job-1")
	r.Run(context.Background(), "job-1", models.StageTranscoding)

	job, err := st.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageFailed, job.Stage)
	assert.Contains(t, job.Error, "summarize")
	assert.NotEmpty(t, job.Transcript, "partial results stay visible after a later failure")
	assert.Empty(t, job.Summary)
}

func TestRunnerContentRejectionFinishes(t *testing.T) {
	st := store.New()
	adapters, _, _, _, sum := happyAdapters()
	sum.summary = "The model declined to summarize this content (content policy)."
	r := NewRunner(st, adapters, Timeouts{}, 0, "")

	newTestJob(t, st, "job-1")
	r.Run(context.Background(), "job-1", models.StageTranscoding)

	job, err := st.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageFinished, job.Stage, "a rejection is not a failure")
	assert.Equal(t, sum.summary, job.Summary)
	assert.Empty(t, job.Error)
}

func TestRunnerCancelBeforeFirstCheckpoint(t *testing.T) {
	st := store.New()
	adapters, tr, _, _, _ := happyAdapters()
	r := NewRunner(st, adapters, Timeouts{}, 0, "")

	newTestJob(t, st, "job-1")
	require.NoError(t, st.Update("job-1", func(j *models.Job) { j.Cancelled = true }))
	r.Run(context.Background(), "job-1", models.StageTranscoding)

	job, err := st.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageCancelled, job.Stage)
	assert.Equal(t, 0, job.Progress)
	assert.False(t, tr.called, "no adapter is called once cancellation is seen")

	events := collectEvents(t, st, "job-1")
	require.Len(t, events, 1)
	assert.True(t, events[0].Done)
}

func TestRunnerCancelMidRecognizing(t *testing.T) {
	st := store.New()
	adapters, _, _, rec, sum := happyAdapters()
	// The flag is raised while recognition is in flight; the stage is
	// allowed to finish and the transition happens at the next checkpoint.
	rec.onCall = func() {
		st.Update("job-1", func(j *models.Job) { j.Cancelled = true })
	}
	r := NewRunner(st, adapters, Timeouts{}, 0, "")

	newTestJob(t, st, "job-1")
	r.Run(context.Background(), "job-1", models.StageTranscoding)

	job, err := st.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageCancelled, job.Stage)
	assert.Equal(t, 0, job.Progress)
	assert.True(t, rec.called)
	assert.False(t, sum.called, "summarizer is never reached after the checkpoint")
	assert.NotEmpty(t, job.Transcript, "output of the completed stage is kept")
}

func TestRunnerProgressIsMonotonic(t *testing.T) {
	st := store.New()
	adapters, _, _, _, _ := happyAdapters()
	r := NewRunner(st, adapters, Timeouts{}, 0, "")

	newTestJob(t, st, "job-1")

	var progress []int
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(context.Background(), "job-1", models.StageTranscoding)
	}()
	for {
		job, err := st.Get("job-1")
		require.NoError(t, err)
		progress = append(progress, job.Progress)
		if job.Stage.Terminal() {
			break
		}
	}
	<-done

	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Equal(t, models.ProgressDone, progress[len(progress)-1])
}
