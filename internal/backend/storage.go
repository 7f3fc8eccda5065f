package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/your-org/vsconsole/internal/models"
)

// DefaultUploadTimeout bounds a video upload when none is configured.
const DefaultUploadTimeout = 5 * time.Minute

// VideoMetadata is the JSON "metadata" part of a video upload.
type VideoMetadata struct {
	VideoID        string
	CameraID       string
	TimestampStart time.Time
	MediaName      string
}

func (m VideoMetadata) MarshalJSON() ([]byte, error) {
	out := struct {
		VideoID        string `json:"video_id"`
		CameraID       string `json:"camera_id"`
		TimestampStart string `json:"timestamp_start,omitempty"`
		MediaName      string `json:"media_name,omitempty"`
	}{
		VideoID:   m.VideoID,
		CameraID:  m.CameraID,
		MediaName: m.MediaName,
	}
	if !m.TimestampStart.IsZero() {
		out.TimestampStart = m.TimestampStart.UTC().Format(ISOLayout)
	}
	return json.Marshal(out)
}

// DefaultVideoID builds the video id proposed when uploading for a camera.
func DefaultVideoID(cameraID string, t time.Time) string {
	return fmt.Sprintf("%s_%d", cameraID, t.UnixMilli())
}

// StorageService uploads videos to the storage backend.
type StorageService struct {
	t       *transport
	timeout time.Duration
}

// NewStorageService builds the upload client. The per-upload timeout replaces
// any timeout set on httpClient.
func NewStorageService(uploadURL string, httpClient *http.Client, timeout time.Duration) *StorageService {
	c := &http.Client{}
	if httpClient != nil {
		copied := *httpClient
		copied.Timeout = 0
		c = &copied
	}
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	t := newTransport("storage", uploadURL, c)
	t.plainErrors = true
	return &StorageService{t: t, timeout: timeout}
}

// UploadVideo streams the file and its metadata to the storage service.
// The whole call fails with a timeout error once the configured bound passes.
func (s *StorageService) UploadVideo(ctx context.Context, file File, meta VideoMetadata) (models.SubmitResult, error) {
	if file.Data == nil {
		return models.SubmitResult{}, ValidationError("video file is required")
	}
	meta.VideoID = strings.TrimSpace(meta.VideoID)
	meta.CameraID = strings.TrimSpace(meta.CameraID)
	if meta.VideoID == "" {
		return models.SubmitResult{}, ValidationError("video id is required")
	}
	if meta.CameraID == "" {
		return models.SubmitResult{}, ValidationError("camera id is required")
	}
	if strings.TrimSpace(meta.MediaName) == "" {
		meta.MediaName = "0"
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return models.SubmitResult{}, ValidationError("marshal metadata: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeFilePart(mw, "file", file, file.Data)
		if err == nil {
			err = mw.WriteField("metadata", string(metaJSON))
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	data, err := s.t.call(ctx, http.MethodPost, "", pr, mw.FormDataContentType())
	if err != nil {
		if IsKind(err, KindTimeout) {
			err.(*Error).Message = fmt.Sprintf("request timed out after %s", s.timeout)
		}
		return models.SubmitResult{}, err
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return models.SubmitResult{Message: "Upload successful (empty response)"}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return models.SubmitResult{Message: fmt.Sprintf("Upload successful (response: %s)", text)}, nil
	}
	return NormalizeSubmit(raw), nil
}
