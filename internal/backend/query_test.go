package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/vsconsole/internal/models"
)

func TestQueryService_ListJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/jobs", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("size"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"job_id":"j1","type":"upload","status":"COMPLETED","created_at":1700000000}],"totalElements":21,"totalPages":3,"number":2,"size":10}`))
	}))
	defer srv.Close()

	svc := NewQueryService(srv.URL+"/api/v1/jobs", srv.Client())
	page, err := svc.ListJobs(context.Background(), 2, 0)
	require.NoError(t, err)

	require.Len(t, page.Content, 1)
	assert.Equal(t, "j1", page.Content[0].JobID)
	assert.Equal(t, models.JobTypeUpload, page.Content[0].Type)
	assert.Equal(t, "2023-11-14T22:13:20.000Z", page.Content[0].CreatedAt)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 21, page.TotalElements)
}

func TestQueryService_ListJobs_NegativePage(t *testing.T) {
	svc := NewQueryService("http://127.0.0.1:1", nil)
	_, err := svc.ListJobs(context.Background(), -1, 10)
	assert.True(t, IsKind(err, KindValidation))
}

func TestQueryService_GetJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/abc-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"jobId":"abc-1","status":"COMPLETED","frames":[{"id":"f1","imageUrl":"/f1.jpg","frameTime":"2024-02-02T02:02:02Z"}]}}`))
	}))
	defer srv.Close()

	job, err := NewQueryService(srv.URL+"/jobs", srv.Client()).GetJob(context.Background(), "abc-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.Len(t, job.Frames, 1)
	assert.Equal(t, "2024-02-02T02:02:02.000Z", job.Frames[0].FrameTime)
}

func TestQueryService_SearchText_EmptyMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	svc := NewQueryService(srv.URL, srv.Client())
	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := svc.SearchText(context.Background(), SearchRequest{Text: text})
		require.Error(t, err)
		assert.True(t, IsKind(err, KindValidation))
	}
	assert.Zero(t, calls.Load())
}

func TestQueryService_SearchText(t *testing.T) {
	ts := time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/jobs/text", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "man in red jacket", body["text"])
		assert.Equal(t, false, body["is_continue_search"])
		assert.Equal(t, "2024-04-01T09:30:00.000Z", body["timestamp"])
		assert.EqualValues(t, 120, body["duration_seconds"])

		_, _ = w.Write([]byte(`{"job_id":"s1","status":"queued"}`))
	}))
	defer srv.Close()

	res, err := NewQueryService(srv.URL+"/jobs", srv.Client()).SearchText(context.Background(), SearchRequest{
		Text:            "  man in red jacket ",
		Timestamp:       ts,
		DurationSeconds: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", res.JobID)
	assert.Equal(t, models.JobStatusQueued, res.Status)
}

func TestQueryService_SearchImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/images", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}

		f, hdr, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(f)
		assert.Equal(t, "jpegbytes", string(data))
		assert.Equal(t, "q.jpg", hdr.Filename)
		assert.Equal(t, "image/jpeg", hdr.Header.Get("Content-Type"))

		rf, rhdr, err := r.FormFile("request")
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "application/json", rhdr.Header.Get("Content-Type"))
		var req map[string]any
		assert.NoError(t, json.NewDecoder(rf).Decode(&req))
		assert.Equal(t, false, req["is_continue_search"])
		assert.NotContains(t, req, "timestamp")

		_, _ = w.Write([]byte(`{"jobId":"img-1"}`))
	}))
	defer srv.Close()

	res, err := NewQueryService(srv.URL+"/jobs", srv.Client()).SearchImage(context.Background(),
		File{Name: "q.jpg", ContentType: "image/jpeg", Data: strings.NewReader("jpegbytes")},
		SearchRequest{})
	require.NoError(t, err)
	assert.Equal(t, "img-1", res.JobID)
}

func TestQueryService_SearchImage_RequiresData(t *testing.T) {
	svc := NewQueryService("http://127.0.0.1:1", nil)
	_, err := svc.SearchImage(context.Background(), File{Name: "x.jpg"}, SearchRequest{})
	assert.True(t, IsKind(err, KindValidation))

	_, err = svc.SearchImage(context.Background(), File{Name: "x.jpg", Data: strings.NewReader("")}, SearchRequest{})
	assert.True(t, IsKind(err, KindValidation))
}

func TestTransport_ErrorKinds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jobs/msg":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"job not found"}`))
		case "/jobs/detail":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":"bad id"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`oops`))
		}
	}))
	svc := NewQueryService(srv.URL+"/jobs", srv.Client())

	_, err := svc.GetJob(context.Background(), "msg")
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindHTTP, be.Kind)
	assert.Equal(t, http.StatusBadRequest, be.Status)
	assert.Equal(t, "job not found", be.Error())
	assert.Equal(t, "query", be.Service)

	_, err = svc.GetJob(context.Background(), "detail")
	assert.EqualError(t, err, "bad id")

	_, err = svc.GetJob(context.Background(), "plain")
	assert.EqualError(t, err, "HTTP error! status: 500")

	srv.Close()
	_, err = svc.GetJob(context.Background(), "gone")
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindNetwork, be.Kind)
	assert.Contains(t, be.Message, "network error calling")
}

func TestTransport_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewQueryService(srv.URL, srv.Client()).GetJob(context.Background(), "x")
	assert.True(t, IsKind(err, KindHTTP))
}

func TestTransport_URL(t *testing.T) {
	tr := newTransport("q", "http://h/api/", nil)
	assert.Equal(t, "http://h/api", tr.url(""))
	assert.Equal(t, "http://h/api?page=1", tr.url("?page=1"))
	assert.Equal(t, "http://h/api/text", tr.url("/text"))
}
