package dto

import (
	"time"

	"github.com/your-org/vsconsole/internal/models"
)

// JobDetailResponse is a job together with the cameras needed to place its
// frames on the map.
type JobDetailResponse struct {
	Job     models.Job      `json:"job"`
	Cameras []models.Camera `json:"cameras"`
}

type SearchTextRequest struct {
	Text            string     `json:"text" binding:"required"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty" binding:"gte=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
