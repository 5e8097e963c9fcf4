package bus

import "time"

type EventType string

const (
	EventJobReceived   EventType = "job_received"
	EventJobSuperseded EventType = "job_superseded"
	EventJobMalformed  EventType = "job_malformed"
	EventJobCompleted  EventType = "job_completed"
	EventJobFailed     EventType = "job_failed"
)

// Event is one job lifecycle notification. Events are informational; nothing
// in the import path waits on them.
type Event struct {
	Type    EventType         `json:"type"`
	At      time.Time         `json:"at"`
	JobID   string            `json:"job_id,omitempty"`
	Asset   string            `json:"asset,omitempty"`
	Payload map[string]string `json:"payload,omitempty"`
	Error   string            `json:"error,omitempty"`
}
