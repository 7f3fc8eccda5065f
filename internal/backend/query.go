package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/vsconsole/internal/models"
)

// File is an in-memory or streamed file handed to a multipart upload.
type File struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// SearchRequest carries the optional search window shared by text and image
// searches. Zero values are omitted from the request.
type SearchRequest struct {
	Text            string
	Timestamp       time.Time
	DurationSeconds int
}

func (r SearchRequest) payload() map[string]any {
	body := map[string]any{"is_continue_search": false}
	if !r.Timestamp.IsZero() {
		body["timestamp"] = r.Timestamp.UTC().Format(ISOLayout)
	}
	if r.DurationSeconds > 0 {
		body["duration_seconds"] = r.DurationSeconds
	}
	return body
}

// QueryService talks to the job/query backend.
type QueryService struct {
	t *transport
}

func NewQueryService(baseURL string, httpClient *http.Client) *QueryService {
	return &QueryService{t: newTransport("query", baseURL, httpClient)}
}

// ListJobs returns one page of jobs. page is zero-based.
func (s *QueryService) ListJobs(ctx context.Context, page, size int) (models.JobPage, error) {
	if page < 0 {
		return models.JobPage{}, ValidationError("page must not be negative")
	}
	if size <= 0 {
		size = 10
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	raw, err := s.t.getJSON(ctx, "?"+q.Encode())
	if err != nil {
		return models.JobPage{}, err
	}
	return NormalizeJobPage(raw, size), nil
}

func (s *QueryService) GetJob(ctx context.Context, jobID string) (models.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return models.Job{}, ValidationError("job id is required")
	}
	raw, err := s.t.getJSON(ctx, url.PathEscape(jobID))
	if err != nil {
		return models.Job{}, err
	}
	return NormalizeJob(unwrapData(raw)), nil
}

// SearchText submits a text search. An empty text is rejected without a call.
func (s *QueryService) SearchText(ctx context.Context, req SearchRequest) (models.SubmitResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return models.SubmitResult{}, ValidationError("search text is required")
	}
	body := req.payload()
	body["text"] = text

	raw, err := s.t.sendJSON(ctx, http.MethodPost, "text", body)
	if err != nil {
		return models.SubmitResult{}, err
	}
	return NormalizeSubmit(raw), nil
}

// SearchImage submits an image search as multipart: the image file plus a
// JSON "request" part with the search window.
func (s *QueryService) SearchImage(ctx context.Context, image File, req SearchRequest) (models.SubmitResult, error) {
	if image.Data == nil {
		return models.SubmitResult{}, ValidationError("image file is required")
	}
	data, err := io.ReadAll(image.Data)
	if err != nil {
		return models.SubmitResult{}, ValidationError("read image: %v", err)
	}
	if len(data) == 0 {
		return models.SubmitResult{}, ValidationError("image file is empty")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := writeFilePart(mw, "image", image, bytes.NewReader(data)); err != nil {
		return models.SubmitResult{}, ValidationError("build multipart body: %v", err)
	}
	if err := writeJSONPart(mw, "request", req.payload()); err != nil {
		return models.SubmitResult{}, ValidationError("build multipart body: %v", err)
	}
	if err := mw.Close(); err != nil {
		return models.SubmitResult{}, ValidationError("build multipart body: %v", err)
	}

	body, err := s.t.call(ctx, http.MethodPost, "images", &buf, mw.FormDataContentType())
	if err != nil {
		return models.SubmitResult{}, err
	}
	raw, err := s.t.decode(http.MethodPost, "images", body)
	if err != nil {
		return models.SubmitResult{}, err
	}
	return NormalizeSubmit(raw), nil
}

func writeFilePart(mw *multipart.Writer, field string, f File, r io.Reader) error {
	name := f.Name
	if name == "" {
		name = field
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}

func writeJSONPart(mw *multipart.Writer, field string, v any) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="blob"`, field))
	h.Set("Content-Type", "application/json")
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	return jsonEncode(part, v)
}
