package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type testServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		_, _ = body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
		})
		ts.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(resp))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"not found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) recorded() []recordedRequest {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]recordedRequest(nil), ts.requests...)
}

// execute runs the CLI with fresh global state and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	oldOut, oldIn := stdout, stdin
	t.Cleanup(func() { stdout, stdin = oldOut, oldIn })
	stdout = &out
	stdin = strings.NewReader("")
	jsonOutput, assumeYes, noColor = false, false, true

	cfg := filepath.Join(t.TempDir(), "missing.yaml")
	rootCmd.SetArgs(append([]string{"--config", cfg}, args...))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestJobsList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/v1/jobs": `{"content":[{"jobId":"j-1","type":"SEARCH","status":"COMPLETED","textValue":"red car","createdAt":"2024-01-01T00:00:00Z"}],"totalElements":1,"totalPages":1,"number":0,"size":10}`,
	})
	t.Setenv("VSC_QUERY_URL", ts.server.URL+"/api/v1/jobs")

	out, err := execute(t, "jobs", "list", "--page", "0", "--size", "10")
	require.NoError(t, err)

	assert.Contains(t, out, "j-1")
	assert.Contains(t, out, "COMPLETED")
	assert.Contains(t, out, `"red car"`)
	assert.Contains(t, out, "page 1/1, 1 jobs")

	reqs := ts.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v1/jobs?page=0&size=10", reqs[0].Path)
}

func TestJobsGet_JSON(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/v1/jobs/j-2": `{"jobId":"j-2","type":"SEARCH","status":"PROCESSING","createdAt":"2024-01-01T00:00:00Z","frames":[{"id":"f1","imageUrl":"/f1.jpg","frameTime":"2024-01-01T00:00:05Z"}]}`,
	})
	t.Setenv("VSC_QUERY_URL", ts.server.URL+"/api/v1/jobs")

	out, err := execute(t, "--json", "jobs", "get", "j-2")
	require.NoError(t, err)

	var job map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Equal(t, "j-2", job["jobId"])
	assert.Equal(t, "PROCESSING", job["status"])
	assert.Nil(t, job["frames"], "frames are only kept for terminal jobs")
}

func TestSearchText_EmptyQueryRejected(t *testing.T) {
	ts := newTestServer(t, nil)
	t.Setenv("VSC_QUERY_URL", ts.server.URL)

	_, err := execute(t, "search", "text", "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search text is required")
	assert.Empty(t, ts.recorded())
}

func TestStreamsStop_UsesListedJob(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/v1/streams/list":        `{"streams":[{"job_id":"job-9","camera_id":"cam-1","status":"running"}]}`,
		"POST /api/v1/streams/stop/job-9": `{}`,
	})
	t.Setenv("VSC_CAMERA_URL", ts.server.URL+"/api/v1")

	_, err := execute(t, "streams", "stop", "cam-1")
	require.NoError(t, err)

	reqs := ts.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "POST", reqs[1].Method)
	assert.Equal(t, "/api/v1/streams/stop/job-9", reqs[1].Path)
}

func TestStreamsStop_UnknownCamera(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/v1/streams/list": `{"streams":[]}`,
	})
	t.Setenv("VSC_CAMERA_URL", ts.server.URL+"/api/v1")

	_, err := execute(t, "streams", "stop", "cam-7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active stream for camera cam-7")
}

func TestCamerasDelete_NeedsConfirmation(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /api/v1/cameras/cam-1": `{}`,
	})
	t.Setenv("VSC_CAMERA_URL", ts.server.URL+"/api/v1")

	_, err := execute(t, "cameras", "delete", "cam-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.Empty(t, ts.recorded())

	_, err = execute(t, "cameras", "delete", "cam-1", "--yes")
	require.NoError(t, err)
	reqs := ts.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "DELETE", reqs[0].Method)
}

func TestRoutesResolve(t *testing.T) {
	out, err := execute(t, "routes", "resolve", "#/job/abc%201")
	require.NoError(t, err)
	assert.Contains(t, out, "job")
	assert.Contains(t, out, "id = abc 1")
}

func TestRoutesPath(t *testing.T) {
	out, err := execute(t, "routes", "path", "job", "id=j-1")
	require.NoError(t, err)
	assert.Equal(t, "#/job/j-1\n", out)

	_, err = execute(t, "routes", "path", "job", "id")
	assert.Error(t, err)
}

func TestParseIncidentID(t *testing.T) {
	id, err := parseIncidentID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseIncidentID(bad)
		assert.Error(t, err, bad)
	}
}

func TestConfirm(t *testing.T) {
	oldIn, oldTerm := stdin, isTerminal
	t.Cleanup(func() {
		stdin, isTerminal = oldIn, oldTerm
		assumeYes = false
	})
	isTerminal = func(int) bool { return true }

	answer := func(text string) error {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		defer r.Close()
		_, _ = io.WriteString(w, text)
		w.Close()
		stdin = r
		return confirm("delete %s", "thing")
	}

	assert.NoError(t, answer("y\n"))
	assert.NoError(t, answer("YES\n"))
	assert.ErrorIs(t, answer("n\n"), errNotConfirmed)
	assert.ErrorIs(t, answer(""), errNotConfirmed)

	assumeYes = true
	stdin = strings.NewReader("")
	assert.NoError(t, confirm("delete"))
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	assert.Equal(t, "test message", colorize(colorGreen, "test message"))

	noColor = false
	assert.Contains(t, colorize(colorGreen, "test message"), "\033[")
}

func TestIncidentsPurge_RelistsPurgedCamera(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /api/v1/incidents/delete_by_time_range/cam-1": `{"message":"deleted"}`,
		"GET /api/v1/incidents_list":                          `[{"id":4,"camera_id":"cam-1","timestamp":"2024-05-03T00:00:00"}]`,
	})
	t.Setenv("VSC_VIOLENCE_URL", ts.server.URL)

	out, err := execute(t, "incidents", "purge", "--camera", "cam-1",
		"--from", "2024-05-01T00:00:00Z", "--to", "2024-05-02T00:00:00Z", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "cam-1")

	reqs := ts.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodDelete, reqs[0].Method)
	assert.Equal(t, "/api/v1/incidents_list?camera_id=cam-1&limit=100", reqs[1].Path)
}

func TestIncidentsGet_FallsBackToListedRow(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/v1/incidents_list": `[{"id":7,"camera_id":"cam-2","timestamp":"2024-05-03T00:00:00","image_path":"evidence/7.jpg"}]`,
	})
	t.Setenv("VSC_VIOLENCE_URL", ts.server.URL)

	out, err := execute(t, "incidents", "get", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Incident: 7 (camera cam-2)")
	assert.Contains(t, out, ts.server.URL+"/evidence/7.jpg")

	reqs := ts.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/api/v1/incidents/7", reqs[0].Path)
}

func TestViolenceUpdate_KeepsActiveFlag(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/v1/camera/cam-v":   `{"id":3,"camera_id":"cam-v","url":"rtsp://old","is_active":false}`,
		"PATCH /api/v1/camera/cam-v": `{"id":3,"camera_id":"cam-v","url":"rtsp://new","is_active":false}`,
	})
	t.Setenv("VSC_VIOLENCE_URL", ts.server.URL)

	_, err := execute(t, "violence", "update", "cam-v", "--url", "rtsp://new")
	require.NoError(t, err)

	reqs := ts.recorded()
	require.Len(t, reqs, 2)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(reqs[1].Body), &body))
	assert.Equal(t, "rtsp://new", body["url"])
	assert.Equal(t, false, body["is_active"])
}
