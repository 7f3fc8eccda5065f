package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(f)
		assert.Equal(t, "videobytes", string(data))
		assert.Equal(t, "gate.mp4", hdr.Filename)

		var meta map[string]any
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("metadata")), &meta))
		assert.Equal(t, "cam_01_1700000000000", meta["video_id"])
		assert.Equal(t, "cam_01", meta["camera_id"])
		assert.Equal(t, "0", meta["media_name"])
		assert.Equal(t, "2023-11-14T22:13:20.000Z", meta["timestamp_start"])

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func testUpload(t *testing.T, svc *StorageService) (string, error) {
	t.Helper()
	start := time.Unix(1700000000, 0)
	res, err := svc.UploadVideo(context.Background(),
		File{Name: "gate.mp4", ContentType: "video/mp4", Data: strings.NewReader("videobytes")},
		VideoMetadata{VideoID: DefaultVideoID("cam_01", start), CameraID: "cam_01", TimestampStart: start},
	)
	if err != nil {
		return "", err
	}
	if res.JobID != "" {
		return res.JobID, nil
	}
	return res.Message, nil
}

func TestStorageService_UploadVideo(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"json job", `{"data":{"job_id":"up-1"}}`, "up-1"},
		{"empty body", ``, "Upload successful (empty response)"},
		{"plain text", `stored ok`, "Upload successful (response: stored ok)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := uploadServer(t, http.StatusOK, tt.body)
			defer srv.Close()

			got, err := testUpload(t, NewStorageService(srv.URL, srv.Client(), 0))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStorageService_PlainTextError(t *testing.T) {
	srv := uploadServer(t, http.StatusInsufficientStorage, "disk full")
	defer srv.Close()

	_, err := testUpload(t, NewStorageService(srv.URL, srv.Client(), 0))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindHTTP))
	assert.EqualError(t, err, "disk full")
}

func TestStorageService_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	svc := NewStorageService(srv.URL, srv.Client(), 50*time.Millisecond)
	_, err := testUpload(t, svc)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTimeout))
	assert.EqualError(t, err, "request timed out after 50ms")
}

func TestStorageService_ClientTimeoutIgnored(t *testing.T) {
	hc := &http.Client{Timeout: time.Nanosecond}
	svc := NewStorageService("http://example.invalid", hc, 0)
	assert.Zero(t, svc.t.http.Timeout)
	assert.Equal(t, time.Nanosecond, hc.Timeout, "caller's client is not mutated")
	assert.Equal(t, DefaultUploadTimeout, svc.timeout)
}

func TestStorageService_Validation(t *testing.T) {
	svc := NewStorageService("http://127.0.0.1:1", nil, 0)
	ctx := context.Background()

	_, err := svc.UploadVideo(ctx, File{}, VideoMetadata{VideoID: "v", CameraID: "c"})
	assert.True(t, IsKind(err, KindValidation))

	_, err = svc.UploadVideo(ctx, File{Data: strings.NewReader("x")}, VideoMetadata{CameraID: "c"})
	assert.True(t, IsKind(err, KindValidation))

	_, err = svc.UploadVideo(ctx, File{Data: strings.NewReader("x")}, VideoMetadata{VideoID: "v", CameraID: " "})
	assert.True(t, IsKind(err, KindValidation))
}

func TestDefaultVideoID(t *testing.T) {
	assert.Equal(t, "cam_7_1700000000123", DefaultVideoID("cam_7", time.UnixMilli(1700000000123)))
}
