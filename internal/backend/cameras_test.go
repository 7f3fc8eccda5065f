package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/vsconsole/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestCameraPayload_OnlyMatchingLocator(t *testing.T) {
	stream, err := CameraPayload(CameraInput{
		CameraID:   "cam_01",
		Name:       "Lobby",
		SourceType: models.SourceTypeStream,
		StreamURL:  "rtsp://lobby",
		VideoPath:  "/ignored.mp4",
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "rtsp://lobby", stream["stream_url"])
	assert.NotContains(t, stream, "video_path")
	assert.Equal(t, "cam_01", stream["camera_id"])
	assert.Equal(t, true, stream["is_active"])
	assert.Equal(t, map[string]any{}, stream["config"])

	video, err := CameraPayload(CameraInput{
		CameraID:   "cam_02",
		Name:       "Archive",
		SourceType: "VIDEO",
		StreamURL:  "rtsp://ignored",
		VideoPath:  "/data/a.mp4",
		IsActive:   ptr(false),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "/data/a.mp4", video["video_path"])
	assert.NotContains(t, video, "stream_url")
	assert.NotContains(t, video, "camera_id", "id is immutable on update")
	assert.Equal(t, false, video["is_active"])
}

func TestCameraPayload_Validation(t *testing.T) {
	tests := []struct {
		name   string
		in     CameraInput
		create bool
	}{
		{"missing id on create", CameraInput{Name: "n"}, true},
		{"missing name", CameraInput{CameraID: "c"}, true},
		{"bad source type", CameraInput{CameraID: "c", Name: "n", SourceType: "rtsp"}, true},
		{"config not json", CameraInput{CameraID: "c", Name: "n", ConfigText: "{fps: 5"}, true},
		{"config array", CameraInput{CameraID: "c", Name: "n", ConfigText: "[1,2]"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CameraPayload(tt.in, tt.create)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindValidation))
		})
	}
}

func TestCameraPayload_ConfigTextWins(t *testing.T) {
	p, err := CameraPayload(CameraInput{
		CameraID:   "c",
		Name:       "n",
		ConfigText: `{"fps": 10}`,
		Config:     json.RawMessage(`{"fps": 1}`),
		Lat:        ptr(10.5),
	}, true)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"fps": float64(10)}, p["config"])
	assert.Equal(t, 10.5, p["lat"])
	assert.NotContains(t, p, "lon")
}

// fakeCameraBackend keeps cameras in memory the way the camera service does.
type fakeCameraBackend struct {
	mu      sync.Mutex
	cameras []map[string]any
}

func (f *fakeCameraBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/cameras":
		_ = json.NewEncoder(w).Encode(map[string]any{"cameras": f.cameras})
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/cameras":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, c := range f.cameras {
			if c["camera_id"] == body["camera_id"] {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"detail":"camera already exists"}`))
				return
			}
		}
		body["created_at"] = "2024-05-01T00:00:00Z"
		f.cameras = append(f.cameras, body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	case r.Method == http.MethodPut && r.URL.Path == "/api/v1/cameras/cam_01":
		// empty body: the client echoes what it sent
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type rejectAll struct{}

func (rejectAll) ValidateCamera(map[string]any, bool) error { return errors.New("nope") }

func TestCameraService_RegisterThenList(t *testing.T) {
	srv := httptest.NewServer(&fakeCameraBackend{})
	defer srv.Close()
	svc := NewCameraService(srv.URL+"/api/v1", srv.Client(), nil)
	ctx := context.Background()

	created, err := svc.CreateCamera(ctx, CameraInput{
		CameraID:  "cam_01",
		Name:      "Gate",
		StreamURL: "rtsp://gate",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T00:00:00.000Z", created.CreatedAt)

	_, err = svc.CreateCamera(ctx, CameraInput{CameraID: "cam_01", Name: "Gate", StreamURL: "rtsp://gate"})
	require.Error(t, err)
	assert.EqualError(t, err, "camera already exists")

	cams, err := svc.ListCameras(ctx, nil)
	require.NoError(t, err)
	count := 0
	for _, c := range cams {
		if c.CameraID == "cam_01" {
			count++
			assert.Equal(t, models.SourceTypeStream, c.SourceType)
			assert.Equal(t, "rtsp://gate", c.Locator())
		}
	}
	assert.Equal(t, 1, count)
}

func TestCameraService_UpdateEchoesPayload(t *testing.T) {
	srv := httptest.NewServer(&fakeCameraBackend{})
	defer srv.Close()
	svc := NewCameraService(srv.URL+"/api/v1", srv.Client(), nil)

	cam, err := svc.UpdateCamera(context.Background(), "cam_01", CameraInput{
		Name:       "Gate 2",
		SourceType: models.SourceTypeVideo,
		VideoPath:  "/v/gate.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "cam_01", cam.CameraID)
	assert.Equal(t, "Gate 2", cam.Name)
	assert.Equal(t, "/v/gate.mp4", cam.VideoPath)
	assert.Empty(t, cam.StreamURL)
}

func TestCameraService_ValidatorBlocksCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	svc := NewCameraService(srv.URL, srv.Client(), rejectAll{})
	_, err := svc.CreateCamera(context.Background(), CameraInput{CameraID: "c", Name: "n"})
	assert.True(t, IsKind(err, KindValidation))
	assert.False(t, called)
}

func TestCameraService_ListActiveFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("is_active"))
		_, _ = w.Write([]byte(`[{"camera_id":"a","is_active":true}]`))
	}))
	defer srv.Close()

	cams, err := NewCameraService(srv.URL, srv.Client(), nil).ListCameras(context.Background(), ptr(true))
	require.NoError(t, err)
	require.Len(t, cams, 1)
	assert.True(t, cams[0].IsActive)
}

func TestCameraService_Streams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/streams/start":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "cam_01", body["camera_id"])
			assert.Equal(t, "/v/a.mp4", body["stream_url"])
			assert.Equal(t, map[string]any{}, body["config"])
			_, _ = w.Write([]byte(`"job_123"`))
		case r.Method == http.MethodPost && r.URL.Path == "/streams/stop/job_123":
			_, _ = w.Write([]byte(`{"status":"stopped"}`))
		case r.URL.Path == "/streams/job_123/status":
			_, _ = w.Write([]byte(`{"status":"running","frames_processed":"42"}`))
		case r.URL.Path == "/streams/list":
			_, _ = w.Write([]byte(`{"streams":[{"job_id":"job_123","camera_id":"cam_01","status":"running"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	svc := NewCameraService(srv.URL, srv.Client(), nil)
	ctx := context.Background()

	jobID, err := svc.StartStream(ctx, StartStreamRequest{CameraID: "cam_01", StreamURL: "/v/a.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "job_123", jobID)

	status, err := svc.StreamStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "job_123", status.JobID)
	assert.Equal(t, 42, status.FramesProcessed)

	sessions, err := svc.ListStreams(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "cam_01", sessions[0].CameraID)

	require.NoError(t, svc.StopStream(ctx, jobID))
}

func TestCameraService_StartStreamRequiresLocator(t *testing.T) {
	svc := NewCameraService("http://127.0.0.1:1", nil, nil)
	_, err := svc.StartStream(context.Background(), StartStreamRequest{CameraID: "cam_01"})
	assert.True(t, IsKind(err, KindValidation))
}

func TestCameraService_StartStreamWithoutJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	_, err := NewCameraService(srv.URL, srv.Client(), nil).StartStream(context.Background(),
		StartStreamRequest{CameraID: "c", StreamURL: "rtsp://x"})
	assert.True(t, IsKind(err, KindHTTP))
}
