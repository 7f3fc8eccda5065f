package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/vsconsole/internal/models"
)

// scripted returns the statuses in order, repeating the last one.
func scripted(calls *atomic.Int32, statuses ...models.JobStatus) Fetcher {
	return func(ctx context.Context, jobID string) (models.Job, error) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		return models.Job{JobID: jobID, Status: statuses[n]}, nil
	}
}

func TestPoll_StopsAtTerminal(t *testing.T) {
	var calls atomic.Int32
	p := New(scripted(&calls, models.JobStatusQueued, models.JobStatusProcessing, models.JobStatusCompleted, models.JobStatusCompleted), time.Millisecond)

	var seen []models.JobStatus
	job, err := p.Poll(context.Background(), "j1", func(j models.Job) { seen = append(seen, j.Status) })
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, []models.JobStatus{models.JobStatusQueued, models.JobStatusProcessing, models.JobStatusCompleted}, seen)

	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 3, calls.Load(), "no fetch after a terminal response")
}

func TestPoll_FailedIsTerminal(t *testing.T) {
	var calls atomic.Int32
	p := New(scripted(&calls, models.JobStatusFailed), time.Millisecond)

	job, err := p.Poll(context.Background(), "j1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPoll_FetchesImmediately(t *testing.T) {
	var calls atomic.Int32
	p := New(scripted(&calls, models.JobStatusCompleted), time.Hour)

	start := time.Now()
	_, err := p.Poll(context.Background(), "j1", nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPoll_ErrorStopsPolling(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("HTTP error! status: 500")
	p := New(func(ctx context.Context, jobID string) (models.Job, error) {
		calls.Add(1)
		return models.Job{}, boom
	}, time.Millisecond)

	_, err := p.Poll(context.Background(), "j1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPoll_Cancel(t *testing.T) {
	var calls atomic.Int32
	p := New(scripted(&calls, models.JobStatusProcessing), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Poll(ctx, "j1", func(models.Job) {
			if calls.Load() == 2 {
				cancel()
			}
		})
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, calls.Load())
}

func TestPoll_AlreadyCancelled(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// time.NewTimer(0) and ctx.Done race in the first select; either way
	// the poll must end with the context error or a single fetch.
	_, err := New(scripted(&calls, models.JobStatusProcessing), time.Hour).Poll(ctx, "j1", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls.Load(), int32(1))
}

func TestPoll_RequiresJobID(t *testing.T) {
	_, err := New(nil, 0).Poll(context.Background(), "", nil)
	assert.Error(t, err)
}
