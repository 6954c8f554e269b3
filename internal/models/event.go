package models

// EventType classifies entries in a job's event log.
type EventType string

const (
	EventTypeStatus     EventType = "status"
	EventTypeTranscript EventType = "transcript"
	EventTypeSummary    EventType = "summary"
)

// Event is one entry in a job's append-only event log, consumed in order by
// streaming observers. Exactly one event per job carries Done=true and it is
// always the last one appended.
type Event struct {
	Seq     int       `json:"seq"`
	Type    EventType `json:"type"`
	Step    string    `json:"step,omitempty"`
	Text    string    `json:"text,omitempty"`
	Success *bool     `json:"success,omitempty"`
	Done    bool      `json:"done,omitempty"`
}

// StatusEvent builds a pipeline progress notification.
func StatusEvent(step string, ok bool) Event {
	return Event{Type: EventTypeStatus, Step: step, Success: &ok}
}

// TranscriptEvent builds one transcript fragment.
func TranscriptEvent(text string) Event {
	return Event{Type: EventTypeTranscript, Text: text}
}

// SummaryEvent builds one summary fragment.
func SummaryEvent(text string) Event {
	return Event{Type: EventTypeSummary, Text: text}
}

// Final marks e as the last event of its job.
func (e Event) Final() Event {
	e.Done = true
	return e
}
