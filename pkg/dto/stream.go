package dto

import "encoding/json"

// CameraRequest is the body of camera create and update calls. ConfigText
// is free-form JSON typed by the operator and wins over Config.
type CameraRequest struct {
	CameraID    string          `json:"camera_id"`
	Name        string          `json:"name"`
	SourceType  string          `json:"source_type"`
	StreamURL   string          `json:"stream_url"`
	VideoPath   string          `json:"video_path"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	Lat         *float64        `json:"lat"`
	Lon         *float64        `json:"lon"`
	IsActive    *bool           `json:"is_active"`
	Config      json.RawMessage `json:"config,omitempty"`
	ConfigText  string          `json:"config_text,omitempty"`
}

// StreamsResponse maps camera id to the id of its active stream job.
type StreamsResponse struct {
	Streams map[string]string `json:"streams"`
	Total   int               `json:"total"`
}

type StartStreamResponse struct {
	CameraID string `json:"camera_id"`
	JobID    string `json:"job_id"`
}
