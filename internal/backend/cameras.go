package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/your-org/vsconsole/internal/models"
)

// PayloadValidator checks an outgoing camera payload before it is sent.
type PayloadValidator interface {
	ValidateCamera(payload map[string]any, create bool) error
}

// CameraInput is what an operator fills in when creating or editing a camera.
// ConfigText, when set, is the free-form JSON typed by the operator and wins
// over Config.
type CameraInput struct {
	CameraID    string
	Name        string
	SourceType  models.SourceType
	StreamURL   string
	VideoPath   string
	Location    string
	Description string
	Lat         *float64
	Lon         *float64
	IsActive    *bool
	ConfigText  string
	Config      json.RawMessage
}

// CameraPayload builds the create/update body. Only the locator matching the
// source type is sent; the camera id is only sent on create.
func CameraPayload(in CameraInput, create bool) (map[string]any, error) {
	in.CameraID = strings.TrimSpace(in.CameraID)
	in.Name = strings.TrimSpace(in.Name)
	if create && in.CameraID == "" {
		return nil, ValidationError("camera id is required")
	}
	if in.Name == "" {
		return nil, ValidationError("camera name is required")
	}

	sourceType := models.SourceType(strings.ToLower(string(in.SourceType)))
	if sourceType == "" {
		sourceType = models.SourceTypeStream
	}
	if sourceType != models.SourceTypeStream && sourceType != models.SourceTypeVideo {
		return nil, ValidationError("source type must be %q or %q", models.SourceTypeStream, models.SourceTypeVideo)
	}

	config, err := parseConfig(in.ConfigText, in.Config)
	if err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	payload := map[string]any{
		"name":        in.Name,
		"source_type": string(sourceType),
		"is_active":   active,
		"config":      config,
	}
	if create {
		payload["camera_id"] = in.CameraID
	}
	if sourceType == models.SourceTypeStream {
		payload["stream_url"] = strings.TrimSpace(in.StreamURL)
	} else {
		payload["video_path"] = strings.TrimSpace(in.VideoPath)
	}
	if in.Location != "" {
		payload["location"] = in.Location
	}
	if in.Description != "" {
		payload["description"] = in.Description
	}
	if in.Lat != nil {
		payload["lat"] = *in.Lat
	}
	if in.Lon != nil {
		payload["lon"] = *in.Lon
	}
	return payload, nil
}

// parseConfig turns the operator's config text into a JSON object.
func parseConfig(text string, fallback json.RawMessage) (map[string]any, error) {
	src := strings.TrimSpace(text)
	if src == "" {
		src = strings.TrimSpace(string(fallback))
	}
	if src == "" {
		return map[string]any{}, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(src), &obj); err != nil {
		return nil, ValidationError("config must be a JSON object: %v", err)
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}

// CameraService covers camera CRUD and stream control on the camera backend.
type CameraService struct {
	t         *transport
	validator PayloadValidator
}

func NewCameraService(baseURL string, httpClient *http.Client, validator PayloadValidator) *CameraService {
	return &CameraService{t: newTransport("camera", baseURL, httpClient), validator: validator}
}

// ListCameras lists cameras, optionally filtered by the active flag.
func (s *CameraService) ListCameras(ctx context.Context, active *bool) ([]models.Camera, error) {
	path := "cameras"
	if active != nil {
		path += "?" + url.Values{"is_active": {strconv.FormatBool(*active)}}.Encode()
	}
	raw, err := s.t.getJSON(ctx, path)
	if err != nil {
		return nil, err
	}
	items := listOf(raw, "cameras", "items", "content")
	cams := make([]models.Camera, 0, len(items))
	for _, item := range items {
		cams = append(cams, NormalizeCamera(item))
	}
	return cams, nil
}

func (s *CameraService) GetCamera(ctx context.Context, cameraID string) (models.Camera, error) {
	if strings.TrimSpace(cameraID) == "" {
		return models.Camera{}, ValidationError("camera id is required")
	}
	raw, err := s.t.getJSON(ctx, "cameras/"+url.PathEscape(cameraID))
	if err != nil {
		return models.Camera{}, err
	}
	return NormalizeCamera(unwrapData(raw)), nil
}

func (s *CameraService) CreateCamera(ctx context.Context, in CameraInput) (models.Camera, error) {
	payload, err := s.payload(in, true)
	if err != nil {
		return models.Camera{}, err
	}
	raw, err := s.t.sendJSON(ctx, http.MethodPost, "cameras", payload)
	if err != nil {
		return models.Camera{}, err
	}
	return s.echo(raw, payload, in.CameraID), nil
}

// UpdateCamera replaces the editable fields of a camera. The camera id
// itself cannot change.
func (s *CameraService) UpdateCamera(ctx context.Context, cameraID string, in CameraInput) (models.Camera, error) {
	if strings.TrimSpace(cameraID) == "" {
		return models.Camera{}, ValidationError("camera id is required")
	}
	payload, err := s.payload(in, false)
	if err != nil {
		return models.Camera{}, err
	}
	raw, err := s.t.sendJSON(ctx, http.MethodPut, "cameras/"+url.PathEscape(cameraID), payload)
	if err != nil {
		return models.Camera{}, err
	}
	return s.echo(raw, payload, cameraID), nil
}

func (s *CameraService) DeleteCamera(ctx context.Context, cameraID string) error {
	if strings.TrimSpace(cameraID) == "" {
		return ValidationError("camera id is required")
	}
	_, err := s.t.sendJSON(ctx, http.MethodDelete, "cameras/"+url.PathEscape(cameraID), nil)
	return err
}

func (s *CameraService) payload(in CameraInput, create bool) (map[string]any, error) {
	payload, err := CameraPayload(in, create)
	if err != nil {
		return nil, err
	}
	if s.validator != nil {
		if err := s.validator.ValidateCamera(payload, create); err != nil {
			return nil, ValidationError("%v", err)
		}
	}
	return payload, nil
}

// echo normalizes the backend's answer, falling back to what was sent when
// the backend answers with an empty body.
func (s *CameraService) echo(raw any, sent map[string]any, cameraID string) models.Camera {
	if m, ok := unwrapData(raw).(map[string]any); ok && len(m) > 0 {
		return NormalizeCamera(m)
	}
	fallback := make(map[string]any, len(sent)+1)
	for k, v := range sent {
		fallback[k] = v
	}
	fallback["camera_id"] = cameraID
	return NormalizeCamera(fallback)
}

// StartStreamRequest starts processing a camera's source.
type StartStreamRequest struct {
	CameraID  string          `json:"camera_id"`
	StreamURL string          `json:"stream_url"`
	Config    json.RawMessage `json:"config"`
}

func (s *CameraService) ListStreams(ctx context.Context) ([]models.StreamSession, error) {
	raw, err := s.t.getJSON(ctx, "streams/list")
	if err != nil {
		return nil, err
	}
	items := listOf(raw, "streams", "items")
	sessions := make([]models.StreamSession, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, NormalizeStreamSession(item))
	}
	return sessions, nil
}

// StartStream starts processing and returns the job id of the new session.
func (s *CameraService) StartStream(ctx context.Context, req StartStreamRequest) (string, error) {
	if strings.TrimSpace(req.CameraID) == "" {
		return "", ValidationError("camera id is required")
	}
	if strings.TrimSpace(req.StreamURL) == "" {
		return "", ValidationError("camera %s has no stream url or video path", req.CameraID)
	}
	if len(req.Config) == 0 {
		req.Config = json.RawMessage("{}")
	}

	raw, err := s.t.sendJSON(ctx, http.MethodPost, "streams/start", req)
	if err != nil {
		return "", err
	}

	jobID := ""
	if str, ok := raw.(string); ok {
		jobID = str
	} else {
		jobID = NormalizeSubmit(raw).JobID
	}
	if jobID == "" {
		return "", &Error{
			Kind:    KindHTTP,
			Service: s.t.service,
			Method:  http.MethodPost,
			URL:     s.t.url("streams/start"),
			Status:  http.StatusOK,
			Message: "stream service returned no job id",
		}
	}
	return jobID, nil
}

func (s *CameraService) StopStream(ctx context.Context, jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return ValidationError("job id is required")
	}
	_, err := s.t.sendJSON(ctx, http.MethodPost, "streams/stop/"+url.PathEscape(jobID), nil)
	return err
}

func (s *CameraService) StreamStatus(ctx context.Context, jobID string) (models.StreamSession, error) {
	if strings.TrimSpace(jobID) == "" {
		return models.StreamSession{}, ValidationError("job id is required")
	}
	raw, err := s.t.getJSON(ctx, "streams/"+url.PathEscape(jobID)+"/status")
	if err != nil {
		return models.StreamSession{}, err
	}
	session := NormalizeStreamSession(unwrapData(raw))
	if session.JobID == "" {
		session.JobID = jobID
	}
	return session, nil
}
