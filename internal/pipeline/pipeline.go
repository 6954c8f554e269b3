// Package pipeline holds the stage adapters: the narrow interfaces through
// which the orchestration core reaches the external services that do the
// actual media work, plus their production implementations.
package pipeline

import (
	"context"
	"strings"
)

// Transcoder extracts and re-encodes the audio track of a media file.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

// Uploader stores a local file in object storage and returns a URL the
// speech service can fetch.
type Uploader interface {
	Upload(ctx context.Context, localPath, objectKey string) (string, error)
}

// Recognizer transcribes the audio behind a retrievable URL. The call may
// block for a long time; implementations poll the remote service internally.
type Recognizer interface {
	Recognize(ctx context.Context, fileURL string) (Transcript, error)
}

// Summarizer condenses a transcript with an LLM. A content-policy rejection
// is not an error: the rejection explanation comes back as the summary text
// with a nil error.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Transcript is the structured recognition result before normalization.
type Transcript struct {
	// Sentences are the per-segment texts, in spoken order.
	Sentences []string
	// Text is the flat free-text result some responses carry instead.
	Text string
}

// Normalize flattens a transcript into the single string the rest of the
// pipeline works with: joined sentence segments, falling back to the flat
// text field. An empty result means no speech was recognized.
func (t Transcript) Normalize() string {
	var b strings.Builder
	for _, s := range t.Sentences {
		b.WriteString(s)
	}
	if b.Len() > 0 {
		return strings.TrimSpace(b.String())
	}
	return strings.TrimSpace(t.Text)
}
