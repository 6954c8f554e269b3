package jobs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vidsum/internal/config"
	"vidsum/internal/models"
	"vidsum/internal/store"
)

// Service is the submission front of the orchestration core. It validates
// input synchronously, allocates the job id, and hands the job to a detached
// runner goroutine; it never blocks the caller on pipeline stages (except
// for the deliberate synchronous prepare step in prepare mode).
type Service struct {
	cfg    *config.Config
	store  *store.Store
	runner *Runner
}

func NewService(cfg *config.Config, st *store.Store, adapters Adapters) *Service {
	runner := NewRunner(st, adapters, Timeouts{
		Transcode: cfg.Transcode.Timeout,
		Upload:    cfg.Upload.Timeout,
		Recognize: cfg.Speech.Timeout,
		Summarize: cfg.Summarize.Timeout,
	}, cfg.Pipeline.FragmentDelay, cfg.Storage.OutputDir)

	return &Service{cfg: cfg, store: st, runner: runner}
}

// Submit accepts one uploaded media payload and returns the id of the job
// now running for it. Configuration and input problems are reported here,
// synchronously; once an id is returned, every later failure is recorded on
// the job itself.
func (s *Service) Submit(ctx context.Context, payload io.Reader, filename string) (string, error) {
	if err := s.cfg.ValidateCredentials(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(payload)
	if err != nil {
		return "", fmt.Errorf("%w: read upload: %v", models.ErrValidation, err)
	}
	if len(data) == 0 {
		return "", models.ErrEmptyUpload
	}

	id := uuid.NewString()
	spoolPath, err := s.spool(id, filename, data)
	if err != nil {
		return "", err
	}

	entry := models.StageTranscoding
	mediaURL := ""
	if s.cfg.Pipeline.Mode == config.ModePrepare {
		mediaURL, err = s.runner.Prepare(ctx, spoolPath, filename)
		if err != nil {
			os.Remove(spoolPath)
			return "", fmt.Errorf("prepare media: %w", err)
		}
		entry = models.StageRecognizing
	}

	if _, err := s.store.Create(id, filepath.Base(filename)); err != nil {
		return "", err
	}
	s.store.Update(id, func(j *models.Job) {
		j.SpoolPath = spoolPath
		j.MediaURL = mediaURL
	})

	// Fire and forget: the runner outlives this request, so it gets a
	// fresh context rather than the request's.
	go s.runner.Run(context.Background(), id, entry)

	log.Infof("job %s submitted (%s, %d bytes, entry %s)", id, filename, len(data), entry)
	return id, nil
}

func (s *Service) spool(id, filename string, data []byte) (string, error) {
	dir := s.cfg.Storage.SpoolDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}
	name := filepath.Base(filename)
	if name == "" || name == "." {
		name = "upload.bin"
	}
	path := filepath.Join(dir, id+"_"+name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("spool upload: %w", err)
	}
	return path, nil
}

// Status returns a point-in-time snapshot of the job record.
func (s *Service) Status(id string) (models.Job, error) {
	return s.store.Get(id)
}

// List returns snapshots of all known jobs, newest first.
func (s *Service) List() []models.Job {
	return s.store.List()
}

// Cancel sets the advisory cancel flag. A job still in queued state is moved
// to cancelled immediately so observers need not wait for the runner's first
// checkpoint; otherwise the transition happens at the runner's next one, and
// an in-flight external call is never aborted mid-call.
func (s *Service) Cancel(id string) error {
	wasQueued := false
	err := s.store.Update(id, func(j *models.Job) {
		j.Cancelled = true
		wasQueued = j.Stage == models.StageQueued
	})
	if err != nil {
		return err
	}
	if wasQueued {
		finalizeCancel(s.store, id)
	}
	log.Infof("job %s marked cancelled", id)
	return nil
}
