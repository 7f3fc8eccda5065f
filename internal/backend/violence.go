package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/vsconsole/internal/models"
)

// DefaultIncidentLimit caps an incident listing when the caller gives none.
const DefaultIncidentLimit = 100

// ViolenceService talks to the violence-detection service. host is the bare
// service address; API calls go to host/api/v1 and evidence files are served
// from host directly.
type ViolenceService struct {
	t     *transport
	files *transport
	host  string
}

func NewViolenceService(host string, httpClient *http.Client) *ViolenceService {
	host = strings.TrimRight(host, "/")
	return &ViolenceService{
		t:     newTransport("violence", host+"/api/v1", httpClient),
		files: newTransport("violence-files", host, httpClient),
		host:  host,
	}
}

type RegisterViolenceCamera struct {
	CameraID    string `json:"camera_id"`
	URL         string `json:"url"`
	IsDetection bool   `json:"is_detection"`
}

// UpdateViolenceCamera is the PATCH body. A nil IsActive keeps the
// camera's current state.
type UpdateViolenceCamera struct {
	CameraID string `json:"camera_id"`
	URL      string `json:"url"`
	IsActive *bool  `json:"is_active"`
}

func (s *ViolenceService) ListCameras(ctx context.Context) ([]models.ViolenceCamera, error) {
	raw, err := s.t.getJSON(ctx, "camera_list")
	if err != nil {
		return nil, err
	}
	items := listOf(raw, "cameras", "items")
	cams := make([]models.ViolenceCamera, 0, len(items))
	for _, item := range items {
		cams = append(cams, NormalizeViolenceCamera(item))
	}
	return cams, nil
}

func (s *ViolenceService) GetCamera(ctx context.Context, cameraID string) (models.ViolenceCamera, error) {
	if strings.TrimSpace(cameraID) == "" {
		return models.ViolenceCamera{}, ValidationError("camera id is required")
	}
	raw, err := s.t.getJSON(ctx, "camera/"+url.PathEscape(cameraID))
	if err != nil {
		return models.ViolenceCamera{}, err
	}
	return NormalizeViolenceCamera(unwrapData(raw)), nil
}

func (s *ViolenceService) RegisterCamera(ctx context.Context, req RegisterViolenceCamera) (models.ViolenceCamera, error) {
	req.CameraID = strings.TrimSpace(req.CameraID)
	if req.CameraID == "" {
		return models.ViolenceCamera{}, ValidationError("camera id is required")
	}
	raw, err := s.t.sendJSON(ctx, http.MethodPost, "camera/register", req)
	if err != nil {
		return models.ViolenceCamera{}, err
	}
	cam := NormalizeViolenceCamera(unwrapData(raw))
	if cam.CameraID == "" {
		cam.CameraID = req.CameraID
		cam.URL = req.URL
		cam.IsDetection = req.IsDetection
	}
	return cam, nil
}

func (s *ViolenceService) UpdateCamera(ctx context.Context, cameraID string, req UpdateViolenceCamera) (models.ViolenceCamera, error) {
	if strings.TrimSpace(cameraID) == "" {
		return models.ViolenceCamera{}, ValidationError("camera id is required")
	}
	if req.CameraID == "" {
		req.CameraID = cameraID
	}
	if req.IsActive == nil {
		cur, err := s.GetCamera(ctx, cameraID)
		if err != nil {
			return models.ViolenceCamera{}, err
		}
		active := cur.IsActive
		req.IsActive = &active
	}
	raw, err := s.t.sendJSON(ctx, http.MethodPatch, "camera/"+url.PathEscape(cameraID), req)
	if err != nil {
		return models.ViolenceCamera{}, err
	}
	return NormalizeViolenceCamera(unwrapData(raw)), nil
}

func (s *ViolenceService) DeleteCamera(ctx context.Context, cameraID string) error {
	if strings.TrimSpace(cameraID) == "" {
		return ValidationError("camera id is required")
	}
	_, err := s.t.sendJSON(ctx, http.MethodDelete, "camera/"+url.PathEscape(cameraID), nil)
	return err
}

func (s *ViolenceService) StartDetection(ctx context.Context, cameraID string) (models.ViolenceCamera, error) {
	return s.toggle(ctx, cameraID, "start")
}

func (s *ViolenceService) StopDetection(ctx context.Context, cameraID string) (models.ViolenceCamera, error) {
	return s.toggle(ctx, cameraID, "stop")
}

func (s *ViolenceService) toggle(ctx context.Context, cameraID, action string) (models.ViolenceCamera, error) {
	if strings.TrimSpace(cameraID) == "" {
		return models.ViolenceCamera{}, ValidationError("camera id is required")
	}
	raw, err := s.t.sendJSON(ctx, http.MethodPost, "camera/"+url.PathEscape(cameraID)+"/"+action, map[string]any{})
	if err != nil {
		return models.ViolenceCamera{}, err
	}
	return NormalizeViolenceCamera(unwrapData(raw)), nil
}

// ListIncidents lists incidents, newest first as the service returns them.
// An empty cameraID lists every camera; limit <= 0 uses DefaultIncidentLimit.
func (s *ViolenceService) ListIncidents(ctx context.Context, cameraID string, limit int) ([]models.Incident, error) {
	if limit <= 0 {
		limit = DefaultIncidentLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cameraID = strings.TrimSpace(cameraID); cameraID != "" {
		q.Set("camera_id", cameraID)
	}

	raw, err := s.t.getJSON(ctx, "incidents_list?"+q.Encode())
	if err != nil {
		return nil, err
	}
	items := listOf(raw, "incidents", "items")
	incidents := make([]models.Incident, 0, len(items))
	for _, item := range items {
		incidents = append(incidents, NormalizeIncident(item))
	}
	return incidents, nil
}

// GetIncident returns one incident including its person clips.
func (s *ViolenceService) GetIncident(ctx context.Context, id int64) (models.Incident, error) {
	raw, err := s.t.getJSON(ctx, "incidents/"+strconv.FormatInt(id, 10))
	if err != nil {
		return models.Incident{}, err
	}
	inc := NormalizeIncident(unwrapData(raw))
	if inc.ID == 0 {
		inc.ID = id
	}
	return inc, nil
}

func (s *ViolenceService) ReviewIncident(ctx context.Context, id int64) error {
	_, err := s.t.sendJSON(ctx, http.MethodPatch, "incidents/"+strconv.FormatInt(id, 10)+"/review", map[string]any{})
	return err
}

func (s *ViolenceService) DeleteIncident(ctx context.Context, id int64) error {
	_, err := s.t.sendJSON(ctx, http.MethodDelete, "incidents/"+strconv.FormatInt(id, 10), nil)
	return err
}

// DeleteIncidentsByTimeRange removes a camera's incidents detected in [start, end].
func (s *ViolenceService) DeleteIncidentsByTimeRange(ctx context.Context, cameraID string, start, end time.Time) error {
	if strings.TrimSpace(cameraID) == "" {
		return ValidationError("camera id is required")
	}
	if start.IsZero() || end.IsZero() {
		return ValidationError("start and end time are required")
	}
	if start.After(end) {
		return ValidationError("start time must not be after end time")
	}
	q := url.Values{}
	q.Set("start_time", start.UTC().Format(ISOLayout))
	q.Set("end_time", end.UTC().Format(ISOLayout))

	_, err := s.t.sendJSON(ctx, http.MethodDelete, "incidents/delete_by_time_range/"+url.PathEscape(cameraID)+"?"+q.Encode(), nil)
	return err
}

// EvidenceURL resolves an evidence or clip path against the service host.
// Absolute URLs are returned unchanged.
func (s *ViolenceService) EvidenceURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return s.host + "/" + strings.TrimLeft(path, "/")
}

// FetchEvidence downloads an evidence image or clip served by the violence host.
func (s *ViolenceService) FetchEvidence(ctx context.Context, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ValidationError("evidence path is required")
	}
	if strings.Contains(path, "://") || strings.Contains(path, "..") {
		return nil, ValidationError("evidence path must be relative to the detection service")
	}
	return s.files.call(ctx, http.MethodGet, path, nil, "")
}
