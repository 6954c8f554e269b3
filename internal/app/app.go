package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"vidsum/internal/config"
	"vidsum/internal/jobs"
	"vidsum/internal/pipeline"
	"vidsum/internal/store"
)

// App wires the job store, the stage adapters and the orchestration service
// together. Commands pull it out of their context and use the pieces they
// need.
type App struct {
	Config  *config.Config
	Store   *store.Store
	Jobs    *jobs.Service
	Janitor *store.Janitor
}

func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	adapters, err := buildAdapters(cfg)
	if err != nil {
		return nil, err
	}

	st := store.New()
	a := &App{
		Config:  cfg,
		Store:   st,
		Jobs:    jobs.NewService(cfg, st, adapters),
		Janitor: store.NewJanitor(st, cfg.Jobs.Retention, cfg.Jobs.JanitorInterval),
	}

	log.Debugf("application initialized (pipeline mode %s)", cfg.Pipeline.Mode)
	return a, nil
}

// buildAdapters constructs the production stage adapters. Missing
// credentials do not fail here: the server may come up without them, and
// submissions are rejected with a configuration error instead.
func buildAdapters(cfg *config.Config) (jobs.Adapters, error) {
	recognizer, err := pipeline.NewFileTransRecognizer(
		cfg.Speech.Region,
		cfg.OSS.AccessKeyID,
		cfg.OSS.AccessKeySecret,
		cfg.Speech.AppKey,
		cfg.Speech.PollInterval,
	)
	if err != nil {
		return jobs.Adapters{}, fmt.Errorf("init recognizer: %w", err)
	}

	summarizer, err := pipeline.NewSummarizer(pipeline.SummarizerConfig{
		Provider: cfg.Summarize.Provider,
		APIKey:   cfg.Summarize.APIKey,
		Model:    cfg.Summarize.Model,
		BaseURL:  cfg.Summarize.BaseURL,
		Prompt:   cfg.Summarize.Prompt,
	})
	if err != nil {
		return jobs.Adapters{}, fmt.Errorf("init summarizer: %w", err)
	}

	return jobs.Adapters{
		Transcoder: pipeline.NewFFmpegTranscoder(cfg.Transcode.FFmpegPath),
		Uploader: pipeline.NewOSSUploader(
			cfg.OSS.Region,
			cfg.OSS.Bucket,
			cfg.OSS.AccessKeyID,
			cfg.OSS.AccessKeySecret,
		),
		Recognizer: recognizer,
		Summarizer: summarizer,
	}, nil
}
