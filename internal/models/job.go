package models

import "time"

// Stage identifies where a job currently is in the pipeline, or how it ended.
type Stage string

const (
	StageQueued      Stage = "queued"
	StageTranscoding Stage = "transcoding"
	StageUploading   Stage = "uploading"
	StageRecognizing Stage = "recognizing"
	StageSummarizing Stage = "summarizing"
	StageFinished    Stage = "finished"
	StageFailed      Stage = "failed"
	StageCancelled   Stage = "cancelled"
)

// Progress milestones reached after each stage completes.
const (
	ProgressQueued     = 0
	ProgressTranscoded = 10
	ProgressUploaded   = 30
	ProgressRecognized = 60
	ProgressDone       = 100
)

// Terminal reports whether no further transitions can occur from s.
func (s Stage) Terminal() bool {
	switch s {
	case StageFinished, StageFailed, StageCancelled:
		return true
	default:
		return false
	}
}

// rank orders the active stages so monotonicity can be enforced.
// Terminal stages share the highest rank.
func (s Stage) rank() int {
	switch s {
	case StageQueued:
		return 0
	case StageTranscoding:
		return 1
	case StageUploading:
		return 2
	case StageRecognizing:
		return 3
	case StageSummarizing:
		return 4
	case StageFinished, StageFailed, StageCancelled:
		return 5
	default:
		return -1
	}
}

// ValidTransition enforces the allowed job state machine edges: forward-only
// along the pipeline, any active stage may fail or be cancelled, terminal
// stages are final.
func ValidTransition(from, to Stage) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == StageFailed || to == StageCancelled {
		return true
	}
	return to.rank() > from.rank()
}

// Job is the unit of orchestration state for one submitted media file.
// Each record has a single writer (the runner goroutine that owns the job)
// and any number of concurrent readers.
type Job struct {
	ID         string    `json:"job_id"`
	Stage      Stage     `json:"stage"`
	Progress   int       `json:"progress"`
	Cancelled  bool      `json:"cancelled"`
	Transcript string    `json:"transcript,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Error      string    `json:"error,omitempty"`
	SourceName string    `json:"source_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// SpoolPath is the locally persisted upload the transcoder reads from.
	// MediaURL is the uploaded object the recognizer reads from; when the
	// scheduler prepares the media synchronously it is set before the
	// runner starts.
	SpoolPath string `json:"-"`
	MediaURL  string `json:"-"`
}
