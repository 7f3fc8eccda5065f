// Package incidents reviews violence incidents: the actions taken on them
// and an operator's view of the last listing and the open detail.
package incidents

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/pkg/dto"
)

// ClipSearchWindow is the search duration used when searching from a clip.
const ClipSearchWindow = 60

// Backend is the incident surface of the violence service.
type Backend interface {
	ListIncidents(ctx context.Context, cameraID string, limit int) ([]models.Incident, error)
	GetIncident(ctx context.Context, id int64) (models.Incident, error)
	ReviewIncident(ctx context.Context, id int64) error
	DeleteIncident(ctx context.Context, id int64) error
	DeleteIncidentsByTimeRange(ctx context.Context, cameraID string, start, end time.Time) error
	FetchEvidence(ctx context.Context, path string) ([]byte, error)
}

// ImageSearcher submits an image search to the query service.
type ImageSearcher interface {
	SearchImage(ctx context.Context, image backend.File, req backend.SearchRequest) (models.SubmitResult, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, evt dto.Event) error
}

// Service carries out incident actions against the violence service. It
// holds no per-operator state and is safe to share; View keeps the listing
// and open detail of one operator.
type Service struct {
	backend Backend
	search  ImageSearcher
	events  Publisher
	now     func() time.Time
}

func NewService(b Backend, search ImageSearcher, events Publisher) *Service {
	return &Service{backend: b, search: search, events: events, now: time.Now}
}

func (s *Service) List(ctx context.Context, cameraID string, limit int) ([]models.Incident, error) {
	return s.backend.ListIncidents(ctx, cameraID, limit)
}

// Get loads an incident with its person clips.
func (s *Service) Get(ctx context.Context, id int64) (models.Incident, error) {
	return s.backend.GetIncident(ctx, id)
}

func (s *Service) Review(ctx context.Context, id int64) error {
	if err := s.backend.ReviewIncident(ctx, id); err != nil {
		return err
	}
	slog.Info("incident reviewed", "incident_id", id)
	evt := dto.NewEvent(dto.EventIncidentReviewed)
	evt.IncidentID = id
	s.publish(ctx, evt)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.backend.DeleteIncident(ctx, id); err != nil {
		return err
	}
	slog.Info("incident deleted", "incident_id", id)
	evt := dto.NewEvent(dto.EventIncidentDeleted)
	evt.IncidentID = id
	s.publish(ctx, evt)
	return nil
}

// DeleteRange removes a camera's incidents in [start, end] and lists what
// is left for that camera, up to limit.
func (s *Service) DeleteRange(ctx context.Context, cameraID string, start, end time.Time, limit int) ([]models.Incident, error) {
	if err := s.deleteRange(ctx, cameraID, start, end); err != nil {
		return nil, err
	}
	return s.List(ctx, cameraID, limit)
}

func (s *Service) deleteRange(ctx context.Context, cameraID string, start, end time.Time) error {
	if err := s.backend.DeleteIncidentsByTimeRange(ctx, cameraID, start, end); err != nil {
		return err
	}
	slog.Info("incidents deleted by time range", "camera_id", cameraID, "start", start, "end", end)
	evt := dto.NewEvent(dto.EventIncidentDeleted)
	evt.CameraID = cameraID
	s.publish(ctx, evt)
	return nil
}

// SearchFromClip runs an image search using a person clip as the query,
// covering the last ClipSearchWindow seconds.
func (s *Service) SearchFromClip(ctx context.Context, clipPath string) (models.SubmitResult, error) {
	clipPath = strings.TrimSpace(clipPath)
	if clipPath == "" {
		return models.SubmitResult{}, backend.ValidationError("clip path is required")
	}
	if s.search == nil {
		return models.SubmitResult{}, backend.ValidationError("image search is not available")
	}
	data, err := s.backend.FetchEvidence(ctx, clipPath)
	if err != nil {
		return models.SubmitResult{}, err
	}

	res, err := s.search.SearchImage(ctx,
		backend.File{Name: path.Base(clipPath), ContentType: "image/jpeg", Data: bytes.NewReader(data)},
		backend.SearchRequest{Timestamp: s.now(), DurationSeconds: ClipSearchWindow},
	)
	if err != nil {
		return models.SubmitResult{}, err
	}
	slog.Info("search from clip submitted", "clip", clipPath, "job_id", res.JobID)
	return res, nil
}

func (s *Service) publish(ctx context.Context, evt dto.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, evt); err != nil {
		slog.Warn("publish incident event", "type", evt.Type, "error", err)
	}
}

func clone(items []models.Incident) []models.Incident {
	if items == nil {
		return nil
	}
	out := make([]models.Incident, len(items))
	copy(out, items)
	return out
}
