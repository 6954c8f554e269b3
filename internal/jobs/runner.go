// Package jobs is the orchestration core: it accepts submitted media jobs,
// drives each one through the pipeline stages on its own goroutine, and
// exposes snapshot and streaming views of job progress.
package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"vidsum/internal/models"
	"vidsum/internal/pipeline"
	"vidsum/internal/store"
)

// Adapters bundles the external collaborators a runner calls, one per stage.
type Adapters struct {
	Transcoder pipeline.Transcoder
	Uploader   pipeline.Uploader
	Recognizer pipeline.Recognizer
	Summarizer pipeline.Summarizer
}

// Timeouts bounds each adapter call. The upstream services enforce no
// deadline of their own, and a stuck call would otherwise stall its job's
// runner forever. Zero disables the bound for that stage.
type Timeouts struct {
	Transcode time.Duration
	Upload    time.Duration
	Recognize time.Duration
	Summarize time.Duration
}

// Runner advances one job at a time through the stage state machine:
//
//	queued -> transcoding -> uploading -> recognizing -> summarizing
//	       -> finished | failed | cancelled
//
// The cancellation flag is consulted at the entry of every stage and once
// more before the finished transition; an adapter call already in flight is
// allowed to complete. Every adapter failure is converted into a terminal
// failed record here, nothing propagates out of Run.
type Runner struct {
	store         *store.Store
	adapters      Adapters
	timeouts      Timeouts
	fragmentDelay time.Duration
	outputDir     string
}

func NewRunner(st *store.Store, adapters Adapters, timeouts Timeouts, fragmentDelay time.Duration, outputDir string) *Runner {
	return &Runner{
		store:         st,
		adapters:      adapters,
		timeouts:      timeouts,
		fragmentDelay: fragmentDelay,
		outputDir:     outputDir,
	}
}

// Run executes the pipeline for one job, starting at entry. It owns all
// writes to the job record for the job's lifetime (single writer; the only
// other mutation anywhere is the cancel flag).
func (r *Runner) Run(ctx context.Context, id string, entry models.Stage) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("job %s: runner panic: %v", id, rec)
			r.fail(id, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	job, err := r.store.Get(id)
	if err != nil {
		log.Errorf("job %s: runner started for unknown job", id)
		return
	}

	mediaURL := job.MediaURL

	if entry == models.StageTranscoding {
		if r.cancelledAtCheckpoint(id) {
			return
		}
		r.advance(id, models.StageTranscoding, models.ProgressQueued)
		r.event(id, models.StatusEvent("processing started", true))

		audioPath := audioPathFor(job.SpoolPath)
		err := r.withTimeout(ctx, r.timeouts.Transcode, func(c context.Context) error {
			return r.adapters.Transcoder.Transcode(c, job.SpoolPath, audioPath)
		})
		if err != nil {
			r.fail(id, "transcode audio: "+err.Error())
			return
		}
		r.setProgress(id, models.ProgressTranscoded)
		r.event(id, models.StatusEvent("audio extracted: "+filepath.Base(audioPath), true))

		if r.cancelledAtCheckpoint(id) {
			return
		}
		r.advance(id, models.StageUploading, models.ProgressTranscoded)

		key := objectKeyFor(job.SourceName)
		err = r.withTimeout(ctx, r.timeouts.Upload, func(c context.Context) error {
			var uerr error
			mediaURL, uerr = r.adapters.Uploader.Upload(c, audioPath, key)
			return uerr
		})
		if err != nil {
			r.fail(id, "upload audio: "+err.Error())
			return
		}
		r.store.Update(id, func(j *models.Job) { j.MediaURL = mediaURL })
		r.setProgress(id, models.ProgressUploaded)
		r.event(id, models.StatusEvent("audio uploaded", true))
	}

	if r.cancelledAtCheckpoint(id) {
		return
	}
	r.advance(id, models.StageRecognizing, models.ProgressTranscoded)

	var transcript pipeline.Transcript
	err = r.withTimeout(ctx, r.timeouts.Recognize, func(c context.Context) error {
		var rerr error
		transcript, rerr = r.adapters.Recognizer.Recognize(c, mediaURL)
		return rerr
	})
	if err != nil {
		r.fail(id, "speech recognition: "+err.Error())
		return
	}
	text := transcript.Normalize()
	if text == "" {
		r.fail(id, "no speech content recognized")
		return
	}
	r.writeArtifact("result", text)
	r.store.Update(id, func(j *models.Job) { j.Transcript = text })
	r.setProgress(id, models.ProgressRecognized)
	r.emitFragments(ctx, id, models.EventTypeTranscript, text)
	r.event(id, models.StatusEvent("speech recognition complete", true))

	if r.cancelledAtCheckpoint(id) {
		return
	}
	r.advance(id, models.StageSummarizing, models.ProgressRecognized)
	r.event(id, models.StatusEvent("generating summary", true))

	var summary string
	err = r.withTimeout(ctx, r.timeouts.Summarize, func(c context.Context) error {
		var serr error
		summary, serr = r.adapters.Summarizer.Summarize(c, text)
		return serr
	})
	if err != nil {
		r.fail(id, "summarize: "+err.Error())
		return
	}
	if strings.TrimSpace(summary) == "" {
		// The provider answered but produced nothing; surface that as a
		// readable result rather than an error, matching how a policy
		// rejection is reported.
		summary = "(no summary was generated)"
	}
	r.writeArtifact("summary", summary)
	r.store.Update(id, func(j *models.Job) { j.Summary = summary })
	r.emitFragments(ctx, id, models.EventTypeSummary, summary)

	if r.cancelledAtCheckpoint(id) {
		return
	}
	r.advance(id, models.StageFinished, models.ProgressDone)
	r.event(id, models.StatusEvent("summary complete", true).Final())
	log.Infof("job %s finished", id)
}

// Prepare runs the transcode and upload stages synchronously, before any job
// record exists. The prepare pipeline mode trades a blocking submission for
// failing fast: a broken file or unreachable bucket is reported to the
// caller and no job is ever created.
func (r *Runner) Prepare(ctx context.Context, spoolPath, sourceName string) (string, error) {
	audioPath := audioPathFor(spoolPath)
	err := r.withTimeout(ctx, r.timeouts.Transcode, func(c context.Context) error {
		return r.adapters.Transcoder.Transcode(c, spoolPath, audioPath)
	})
	if err != nil {
		return "", fmt.Errorf("transcode audio: %w", err)
	}

	var url string
	err = r.withTimeout(ctx, r.timeouts.Upload, func(c context.Context) error {
		var uerr error
		url, uerr = r.adapters.Uploader.Upload(c, audioPath, objectKeyFor(sourceName))
		return uerr
	})
	if err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	return url, nil
}

// cancelledAtCheckpoint consults the advisory cancel flag and, when set,
// performs the terminal transition. Reports whether the runner must stop.
func (r *Runner) cancelledAtCheckpoint(id string) bool {
	job, err := r.store.Get(id)
	if err != nil {
		return true
	}
	if !job.Cancelled {
		return false
	}
	if finalizeCancel(r.store, id) {
		log.Infof("job %s cancelled at %s checkpoint", id, job.Stage)
	}
	return true
}

// finalizeCancel moves a job into the cancelled terminal stage and appends
// the closing event, exactly once even when the cancel endpoint and a runner
// checkpoint race. Reports whether this call performed the transition.
func finalizeCancel(st *store.Store, id string) bool {
	transitioned := false
	err := st.Update(id, func(j *models.Job) {
		if j.Stage.Terminal() {
			return
		}
		j.Stage = models.StageCancelled
		j.Progress = models.ProgressQueued
		transitioned = true
	})
	if err != nil || !transitioned {
		return false
	}
	st.AppendEvent(id, models.StatusEvent("job cancelled", false).Final())
	return true
}

func (r *Runner) advance(id string, stage models.Stage, progressFloor int) {
	r.store.Update(id, func(j *models.Job) {
		j.Stage = stage
		if j.Progress < progressFloor {
			j.Progress = progressFloor
		}
	})
}

func (r *Runner) setProgress(id string, progress int) {
	r.store.Update(id, func(j *models.Job) {
		if j.Progress < progress {
			j.Progress = progress
		}
	})
}

func (r *Runner) fail(id, msg string) {
	failed := false
	r.store.Update(id, func(j *models.Job) {
		if j.Stage.Terminal() {
			return
		}
		j.Stage = models.StageFailed
		j.Error = msg
		failed = true
	})
	if failed {
		r.store.AppendEvent(id, models.StatusEvent(msg, false).Final())
		log.Warnf("job %s failed: %s", id, msg)
	}
}

func (r *Runner) event(id string, ev models.Event) {
	if _, err := r.store.AppendEvent(id, ev); err != nil {
		log.Warnf("job %s: append event: %v", id, err)
	}
}

// emitFragments splits text into sentence fragments and appends each as its
// own event with a small delay in between, giving streaming observers an
// incremental reading experience instead of one wall of text.
func (r *Runner) emitFragments(ctx context.Context, id string, evType models.EventType, text string) {
	for _, fragment := range fragments(text) {
		switch evType {
		case models.EventTypeTranscript:
			r.event(id, models.TranscriptEvent(fragment))
		case models.EventTypeSummary:
			r.event(id, models.SummaryEvent(fragment))
		}
		if r.fragmentDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.fragmentDelay):
			}
		}
	}
}

func (r *Runner) withTimeout(ctx context.Context, d time.Duration, f func(context.Context) error) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return f(ctx)
}

// writeArtifact persists a transcript or summary under the output directory.
// Best effort: a full disk must not fail the job.
func (r *Runner) writeArtifact(prefix, text string) {
	if r.outputDir == "" {
		return
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		log.Warnf("create output dir: %v", err)
		return
	}
	name := fmt.Sprintf("%s_%s.txt", prefix, time.Now().Format("2006-01-02_15-04-05"))
	if err := os.WriteFile(filepath.Join(r.outputDir, name), []byte(text), 0o644); err != nil {
		log.Warnf("write %s artifact: %v", prefix, err)
	}
}

func audioPathFor(spoolPath string) string {
	return strings.TrimSuffix(spoolPath, filepath.Ext(spoolPath)) + ".mp3"
}

func objectKeyFor(sourceName string) string {
	base := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	if base == "" || base == "." {
		base = "upload"
	}
	return fmt.Sprintf("uploads/audio/%s_%s.mp3", base, time.Now().Format("2006-01-02_15-04-05"))
}
