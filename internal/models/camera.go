package models

import "encoding/json"

type SourceType string

const (
	SourceTypeStream SourceType = "stream"
	SourceTypeVideo  SourceType = "video"
)

type Camera struct {
	CameraID    string          `json:"camera_id"`
	Name        string          `json:"name"`
	SourceType  SourceType      `json:"source_type"`
	StreamURL   string          `json:"stream_url,omitempty"`
	VideoPath   string          `json:"video_path,omitempty"`
	Location    string          `json:"location,omitempty"`
	Description string          `json:"description,omitempty"`
	Lat         *float64        `json:"lat,omitempty"`
	Lon         *float64        `json:"lon,omitempty"`
	IsActive    bool            `json:"is_active"`
	Config      json.RawMessage `json:"config,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// Locator returns the source locator selected by the camera's source type.
func (c Camera) Locator() string {
	if c.SourceType == SourceTypeVideo {
		return c.VideoPath
	}
	return c.StreamURL
}

// StreamSession is a camera's running processing job as reported by the
// stream-control backend.
type StreamSession struct {
	JobID           string          `json:"job_id"`
	CameraID        string          `json:"camera_id"`
	SourceType      SourceType      `json:"source_type,omitempty"`
	StreamURL       string          `json:"stream_url,omitempty"`
	VideoPath       string          `json:"video_path,omitempty"`
	Status          string          `json:"status"`
	Config          json.RawMessage `json:"config,omitempty"`
	FramesProcessed int             `json:"frames_processed"`
	PersonsDetected int             `json:"persons_detected"`
	StartedAt       string          `json:"started_at,omitempty"`
	EndedAt         string          `json:"ended_at,omitempty"`
	DurationSeconds float64         `json:"duration_seconds"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}
