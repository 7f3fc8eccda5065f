package incidents

import (
	"context"
	"sync"
	"time"

	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/models"
)

type filter struct {
	cameraID string
	limit    int
	set      bool
}

// View is one operator's incident review state: the last listing with its
// filter and the incident open in detail. Local state changes only after
// the backend accepted the action.
type View struct {
	svc *Service

	mu     sync.Mutex
	list   []models.Incident
	open   *models.Incident
	filter filter
}

func NewView(svc *Service) *View {
	return &View{svc: svc}
}

// Refresh lists incidents and makes cameraID and limit the view's filter.
func (v *View) Refresh(ctx context.Context, cameraID string, limit int) ([]models.Incident, error) {
	items, err := v.svc.List(ctx, cameraID, limit)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.list = items
	v.filter = filter{cameraID: cameraID, limit: limit, set: true}
	v.mu.Unlock()
	return clone(items), nil
}

// Open loads an incident and makes it the open detail. When the detail
// fetch fails the listed row is opened instead and returned with the error;
// a view that has not listed yet lists once to find it.
func (v *View) Open(ctx context.Context, id int64) (models.Incident, error) {
	inc, err := v.svc.Get(ctx, id)
	if err == nil {
		v.setOpen(&inc)
		return inc, nil
	}

	v.mu.Lock()
	listed := v.filter.set
	f := v.filter
	v.mu.Unlock()
	if !listed {
		if _, lerr := v.Refresh(ctx, f.cameraID, f.limit); lerr != nil {
			return models.Incident{}, err
		}
	}

	row, ok := v.row(id)
	if !ok {
		return models.Incident{}, err
	}
	v.setOpen(&row)
	return row, err
}

// Current returns the open detail, if any.
func (v *View) Current() (models.Incident, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.open == nil {
		return models.Incident{}, false
	}
	return *v.open, true
}

func (v *View) Review(ctx context.Context, id int64) error {
	if err := v.svc.Review(ctx, id); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.list {
		if v.list[i].ID == id {
			v.list[i].IsReviewed = true
		}
	}
	if v.open != nil && v.open.ID == id {
		v.open.IsReviewed = true
	}
	return nil
}

// Delete removes the incident, drops its row and closes the open detail
// when it shows that incident.
func (v *View) Delete(ctx context.Context, id int64) error {
	if err := v.svc.Delete(ctx, id); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.list[:0]
	for _, inc := range v.list {
		if inc.ID != id {
			kept = append(kept, inc)
		}
	}
	v.list = kept
	if v.open != nil && v.open.ID == id {
		v.open = nil
	}
	return nil
}

// DeleteRange removes a camera's incidents in [start, end] and re-lists
// with the view's filter. A view that has not listed yet re-lists the
// purged camera.
func (v *View) DeleteRange(ctx context.Context, cameraID string, start, end time.Time) ([]models.Incident, error) {
	if err := v.svc.deleteRange(ctx, cameraID, start, end); err != nil {
		return nil, err
	}

	v.mu.Lock()
	if v.open != nil && v.open.CameraID == cameraID && within(v.open.Timestamp, start, end) {
		v.open = nil
	}
	f := v.filter
	v.mu.Unlock()

	if !f.set {
		f = filter{cameraID: cameraID, limit: backend.DefaultIncidentLimit}
	}
	return v.Refresh(ctx, f.cameraID, f.limit)
}

func (v *View) row(id int64) (models.Incident, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, inc := range v.list {
		if inc.ID == id {
			return inc, true
		}
	}
	return models.Incident{}, false
}

func (v *View) setOpen(inc *models.Incident) {
	v.mu.Lock()
	v.open = inc
	v.mu.Unlock()
}

// within reports whether an ISO timestamp falls in [start, end]. A timestamp
// that does not parse counts as inside so no deleted incident stays open.
func within(ts string, start, end time.Time) bool {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return true
	}
	return !t.Before(start) && !t.After(end)
}
