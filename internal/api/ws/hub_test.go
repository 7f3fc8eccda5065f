package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/internal/poller"
	"github.com/your-org/vsconsole/pkg/dto"
)

func startHub(t *testing.T, p *poller.Poller) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(p)
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", hub.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) dto.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt dto.Event
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub, url := startHub(t, nil)
	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	evt := dto.NewEvent(dto.EventStreamStarted)
	evt.CameraID = "cam-1"
	evt.JobID = "job-1"
	require.NoError(t, hub.HandleEvent(context.Background(), evt))

	for _, conn := range []*websocket.Conn{a, b} {
		got := readEvent(t, conn)
		assert.Equal(t, dto.EventStreamStarted, got.Type)
		assert.Equal(t, "cam-1", got.CameraID)
		assert.Equal(t, "job-1", got.JobID)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_FollowsJobUntilTerminal(t *testing.T) {
	var calls atomic.Int32
	p := poller.New(func(_ context.Context, jobID string) (models.Job, error) {
		status := models.JobStatusProcessing
		if calls.Add(1) >= 2 {
			status = models.JobStatusCompleted
		}
		return models.Job{JobID: jobID, Status: status}, nil
	}, 10*time.Millisecond)

	_, url := startHub(t, p)
	conn := dial(t, url+"?job_id=j-1")

	first := readEvent(t, conn)
	assert.Equal(t, dto.EventJobUpdate, first.Type)
	assert.Equal(t, "j-1", first.JobID)
	require.NotNil(t, first.Job)
	assert.Equal(t, models.JobStatusProcessing, first.Job.Status)

	second := readEvent(t, conn)
	require.NotNil(t, second.Job)
	assert.Equal(t, models.JobStatusCompleted, second.Job.Status)

	// No fetch after the terminal status.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHub_FollowReportsPollError(t *testing.T) {
	p := poller.New(func(context.Context, string) (models.Job, error) {
		return models.Job{}, errors.New("query service down")
	}, 10*time.Millisecond)

	_, url := startHub(t, p)
	conn := dial(t, url+"?job_id=j-2")

	evt := readEvent(t, conn)
	assert.Equal(t, dto.EventJobError, evt.Type)
	assert.Equal(t, "j-2", evt.JobID)
	assert.Contains(t, evt.Error, "query service down")
}

func TestHub_BroadcastAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		for range 300 {
			_ = hub.HandleEvent(context.Background(), dto.NewEvent(dto.EventStreamStarted))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked after the hub stopped")
	}
}
