// Package streams tracks which camera currently has a running processing
// job. The backend is the source of truth; the registry is a client-side
// cache that is reconciled against it on every refresh.
package streams

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/internal/observability"
	"github.com/your-org/vsconsole/pkg/dto"
)

// DefaultRefreshInterval is how often Run reconciles with the backend.
const DefaultRefreshInterval = 10 * time.Second

// Backend is the stream-control surface of the camera service.
type Backend interface {
	StartStream(ctx context.Context, req backend.StartStreamRequest) (string, error)
	StopStream(ctx context.Context, jobID string) error
	ListStreams(ctx context.Context) ([]models.StreamSession, error)
}

// Publisher receives registry change notifications.
type Publisher interface {
	PublishEvent(ctx context.Context, evt dto.Event) error
}

type entry struct {
	jobID string
	setAt time.Time
	// confirmed: the last refresh saw this job in the backend listing.
	confirmed bool
}

// Registry maps camera id to the id of its active stream job.
type Registry struct {
	backend  Backend
	events   Publisher
	interval time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	active map[string]entry
}

func NewRegistry(b Backend, events Publisher, refreshInterval time.Duration) *Registry {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	return &Registry{
		backend:  b,
		events:   events,
		interval: refreshInterval,
		now:      time.Now,
		active:   make(map[string]entry),
	}
}

// Start begins processing the camera's source. The locator is the stream
// URL, falling back to the video path.
func (r *Registry) Start(ctx context.Context, cam models.Camera) (string, error) {
	cameraID := strings.TrimSpace(cam.CameraID)
	if cameraID == "" {
		return "", backend.ValidationError("camera id is required")
	}
	locator := cam.StreamURL
	if locator == "" {
		locator = cam.VideoPath
	}
	if strings.TrimSpace(locator) == "" {
		return "", backend.ValidationError("camera %s has no stream url or video path", cameraID)
	}
	if jobID, ok := r.ActiveJob(cameraID); ok {
		return "", backend.ValidationError("camera %s is already streaming (job %s)", cameraID, jobID)
	}

	jobID, err := r.backend.StartStream(ctx, backend.StartStreamRequest{
		CameraID:  cameraID,
		StreamURL: locator,
		Config:    cam.Config,
	})
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.active[cameraID] = entry{jobID: jobID, setAt: r.now()}
	r.mu.Unlock()
	r.updateGauge()

	slog.Info("stream started", "camera_id", cameraID, "job_id", jobID)
	evt := dto.NewEvent(dto.EventStreamStarted)
	evt.CameraID = cameraID
	evt.JobID = jobID
	r.publish(ctx, evt)
	return jobID, nil
}

// Stop stops the camera's active job. Stopping a camera the registry knows
// no job for is a validation error.
func (r *Registry) Stop(ctx context.Context, cameraID string) error {
	jobID, ok := r.ActiveJob(cameraID)
	if !ok {
		return backend.ValidationError("no active stream for camera %s", cameraID)
	}
	if err := r.backend.StopStream(ctx, jobID); err != nil {
		return err
	}

	r.mu.Lock()
	if e, ok := r.active[cameraID]; ok && e.jobID == jobID {
		delete(r.active, cameraID)
	}
	r.mu.Unlock()
	r.updateGauge()

	slog.Info("stream stopped", "camera_id", cameraID, "job_id", jobID)
	evt := dto.NewEvent(dto.EventStreamStopped)
	evt.CameraID = cameraID
	evt.JobID = jobID
	r.publish(ctx, evt)
	return nil
}

// Refresh replaces the cache with the backend's listing. Local entries that
// the listing does not contain survive only while younger than the refresh
// interval, which covers a job started just before the listing was taken.
func (r *Registry) Refresh(ctx context.Context) error {
	sessions, err := r.backend.ListStreams(ctx)
	if err != nil {
		return fmt.Errorf("refresh streams: %w", err)
	}

	now := r.now()
	next := make(map[string]entry, len(sessions))
	for _, s := range sessions {
		if s.CameraID == "" || s.JobID == "" || ended(s.Status) {
			continue
		}
		next[s.CameraID] = entry{jobID: s.JobID, setAt: now, confirmed: true}
	}

	r.mu.Lock()
	for cameraID, e := range r.active {
		if _, listed := next[cameraID]; listed || e.confirmed {
			continue
		}
		if now.Sub(e.setAt) <= r.interval {
			next[cameraID] = e
		}
	}
	r.active = next
	r.mu.Unlock()
	r.updateGauge()

	evt := dto.NewEvent(dto.EventStreamsRefreshed)
	evt.Streams = r.Snapshot()
	r.publish(ctx, evt)
	return nil
}

// Run refreshes immediately and then on every interval until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("stream refresh failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ActiveJob returns the job id recorded for the camera. A local entry the
// backend has not confirmed expires after one refresh interval.
func (r *Registry) ActiveJob(cameraID string) (string, bool) {
	r.mu.RLock()
	e, ok := r.active[cameraID]
	r.mu.RUnlock()
	if !ok || !r.live(e, r.now()) {
		return "", false
	}
	return e.jobID, true
}

// Snapshot returns camera id -> job id for every live entry.
func (r *Registry) Snapshot() map[string]string {
	now := r.now()
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.active))
	for cameraID, e := range r.active {
		if r.live(e, now) {
			out[cameraID] = e.jobID
		}
	}
	return out
}

// ActiveCount returns the number of cameras with a live job.
func (r *Registry) ActiveCount() int {
	return len(r.Snapshot())
}

func (r *Registry) live(e entry, now time.Time) bool {
	return e.confirmed || now.Sub(e.setAt) <= r.interval
}

func (r *Registry) updateGauge() {
	observability.ActiveStreams.Set(float64(r.ActiveCount()))
}

func (r *Registry) publish(ctx context.Context, evt dto.Event) {
	if r.events == nil {
		return
	}
	if err := r.events.PublishEvent(ctx, evt); err != nil {
		slog.Warn("publish stream event", "type", evt.Type, "error", err)
	}
}

func ended(status string) bool {
	switch strings.ToLower(status) {
	case "stopped", "completed", "failed", "error":
		return true
	}
	return false
}
