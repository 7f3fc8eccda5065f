// Package poller follows one job until it reaches a terminal status.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/internal/observability"
)

// DefaultInterval is the fixed delay between two fetches.
const DefaultInterval = 2 * time.Second

// Fetcher loads the current state of a job.
type Fetcher func(ctx context.Context, jobID string) (models.Job, error)

// Poller re-fetches a job on a fixed interval. There is no backoff and no
// attempt limit; the caller bounds the run with its context.
type Poller struct {
	fetch    Fetcher
	interval time.Duration
}

func New(fetch Fetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{fetch: fetch, interval: interval}
}

// Poll fetches jobID immediately and then every interval, handing each
// result to onUpdate. It returns the terminal job as soon as one is seen;
// no further fetch is issued after that. A fetch error ends polling and is
// returned. Cancelling ctx abandons any pending wait and returns ctx.Err().
func (p *Poller) Poll(ctx context.Context, jobID string, onUpdate func(models.Job)) (models.Job, error) {
	if jobID == "" {
		return models.Job{}, fmt.Errorf("poll: job id is required")
	}

	observability.ActivePollers.Inc()
	defer observability.ActivePollers.Dec()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			observability.PollAttempts.WithLabelValues("cancelled").Inc()
			return models.Job{}, ctx.Err()
		case <-timer.C:
		}

		job, err := p.fetch(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				observability.PollAttempts.WithLabelValues("cancelled").Inc()
				return models.Job{}, ctx.Err()
			}
			observability.PollAttempts.WithLabelValues("error").Inc()
			slog.Warn("job poll failed", "job_id", jobID, "error", err)
			return models.Job{}, fmt.Errorf("poll job %s: %w", jobID, err)
		}

		if onUpdate != nil {
			onUpdate(job)
		}

		if job.Status.Terminal() {
			observability.PollAttempts.WithLabelValues("terminal").Inc()
			slog.Debug("job reached terminal status", "job_id", jobID, "status", job.Status)
			return job, nil
		}
		observability.PollAttempts.WithLabelValues("pending").Inc()
		timer.Reset(p.interval)
	}
}
