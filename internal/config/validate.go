package config

import (
	"fmt"

	"vidsum/internal/models"
)

// ValidateCredentials checks that every external service a job will touch is
// configured. It runs on each submission so an unrunnable job is rejected
// synchronously instead of queued and failed later.
func (c *Config) ValidateCredentials() error {
	if c.OSS.AccessKeyID == "" || c.OSS.AccessKeySecret == "" {
		return fmt.Errorf("%w: OSS_ACCESS_KEY_ID / OSS_ACCESS_KEY_SECRET", models.ErrConfig)
	}
	if c.OSS.Bucket == "" {
		return fmt.Errorf("%w: oss.bucket", models.ErrConfig)
	}
	if c.Speech.AppKey == "" {
		return fmt.Errorf("%w: NLS_APP_KEY", models.ErrConfig)
	}
	if c.Summarize.APIKey == "" {
		return fmt.Errorf("%w: summarize.api_key", models.ErrConfig)
	}
	return nil
}

// Validate checks the static parts of the config at startup. Credentials are
// deliberately excluded: the server may come up without them and reject
// submissions until they are provided.
func (c *Config) Validate() error {
	switch c.Pipeline.Mode {
	case ModeStream, ModePrepare:
	default:
		return fmt.Errorf("pipeline.mode must be %q or %q, got %q", ModeStream, ModePrepare, c.Pipeline.Mode)
	}
	if c.Pipeline.StreamPollInterval <= 0 {
		return fmt.Errorf("pipeline.stream_poll_interval must be positive")
	}
	switch c.Summarize.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("summarize.provider must be \"openai\" or \"gemini\", got %q", c.Summarize.Provider)
	}
	return nil
}
