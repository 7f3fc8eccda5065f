package dto

type RegisterViolenceCameraRequest struct {
	CameraID    string `json:"camera_id" binding:"required"`
	URL         string `json:"url" binding:"required"`
	IsDetection bool   `json:"is_detection"`
}

// UpdateViolenceCameraRequest leaves the active flag unchanged when
// is_active is omitted.
type UpdateViolenceCameraRequest struct {
	URL      string `json:"url" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

type SearchClipRequest struct {
	ClipPath string `json:"clip_path" binding:"required"`
}

// IncidentResponse wraps an incident with evidence links resolved against
// the detection service.
type IncidentResponse struct {
	ID          int64          `json:"id"`
	CameraID    string         `json:"camera_id"`
	Timestamp   string         `json:"timestamp"`
	Evidence    string         `json:"evidence"`
	EvidenceURL string         `json:"evidence_url"`
	IsReviewed  bool           `json:"is_reviewed"`
	PersonClips []ClipResponse `json:"person_clips,omitempty"`
}

type ClipResponse struct {
	ID       int64  `json:"id"`
	ClipPath string `json:"clip_path"`
	URL      string `json:"url"`
}

type IncidentListResponse struct {
	Incidents []IncidentResponse `json:"incidents"`
	Total     int                `json:"total"`
}
