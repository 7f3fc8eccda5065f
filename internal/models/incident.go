package models

import (
	"time"

	"github.com/google/uuid"
)

// ViolenceCamera is a camera registered with the violence-detection service.
type ViolenceCamera struct {
	ID          int64  `json:"id"`
	CameraID    string `json:"camera_id"`
	URL         string `json:"url"`
	IsActive    bool   `json:"is_active"`
	IsDetection bool   `json:"is_detection"`
	LastRun     string `json:"last_run,omitempty"`
}

type Incident struct {
	ID          int64        `json:"id"`
	CameraID    string       `json:"camera_id"`
	Timestamp   string       `json:"timestamp"`
	Evidence    string       `json:"evidence"`
	VideoPath   string       `json:"video_path,omitempty"`
	IsReviewed  bool         `json:"is_reviewed"`
	PersonClips []PersonClip `json:"person_clips,omitempty"`
}

type PersonClip struct {
	ID       int64  `json:"id"`
	ClipPath string `json:"clip_path"`
}

// AuditEntry records one operator action against a backend.
type AuditEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Action    string    `json:"action" db:"action"`
	Target    string    `json:"target" db:"target"`
	Outcome   string    `json:"outcome" db:"outcome"`
	Error     string    `json:"error,omitempty" db:"error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
