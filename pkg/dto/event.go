package dto

import (
	"time"

	"github.com/your-org/vsconsole/internal/models"
)

// Event types pushed to console clients.
const (
	EventJobUpdate        = "job_update"
	EventJobError         = "job_error"
	EventStreamStarted    = "stream_started"
	EventStreamStopped    = "stream_stopped"
	EventStreamsRefreshed = "streams_refreshed"
	EventIncidentReviewed = "incident_reviewed"
	EventIncidentDeleted  = "incident_deleted"
)

// Event is a console notification, delivered over NATS between server
// instances and over WebSocket to browsers.
type Event struct {
	Type       string            `json:"type"`
	JobID      string            `json:"job_id,omitempty"`
	CameraID   string            `json:"camera_id,omitempty"`
	IncidentID int64             `json:"incident_id,omitempty"`
	Job        *models.Job       `json:"job,omitempty"`
	Streams    map[string]string `json:"streams,omitempty"`
	Error      string            `json:"error,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string) Event {
	return Event{Type: eventType, Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z")}
}
