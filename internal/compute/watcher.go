package compute

import (
	"context"
	"fmt"
	"time"

	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// DefaultPollInterval is the fixed delay between status polls. No backoff.
const DefaultPollInterval = 15 * time.Second

// StatusSource answers status polls for a submitted compute job. The REST
// client and the in-process compute service both satisfy it.
type StatusSource interface {
	Status(ctx context.Context, computeID string) (*models.ComputeStatusResponse, error)
}

// Watcher polls a StatusSource until a job reaches a terminal state. There is
// no retry cap; cancellation happens through the caller's context.
type Watcher struct {
	source   StatusSource
	interval time.Duration
	logger   logger.Logger
}

func NewWatcher(source StatusSource, log logger.Logger) *Watcher {
	return &Watcher{
		source:   source,
		interval: DefaultPollInterval,
		logger:   log,
	}
}

// NewWatcherWithInterval overrides the poll interval, mainly for tests.
func NewWatcherWithInterval(source StatusSource, log logger.Logger, interval time.Duration) *Watcher {
	w := NewWatcher(source, log)
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Wait polls until the job's success trichotomy leaves the pending state and
// returns the terminal outcome. onPending, when non-nil, is invoked exactly
// once, the first time a poll observes the job still running, so callers can
// show a "this may take a while" notice without repeating it every interval.
//
// Transport errors from the source abort the wait; a pending status is not an
// error. Context cancellation stops the loop between polls.
func (w *Watcher) Wait(ctx context.Context, computeID string, onPending func()) (bool, error) {
	firstCheck := true
	for {
		status, err := w.source.Status(ctx, computeID)
		if err != nil {
			return false, fmt.Errorf("poll compute %s: %w", computeID, err)
		}
		if status.Success != nil {
			if !*status.Success {
				w.logger.Warn("compute job failed", "compute_id", computeID, "error", status.Error)
			}
			return *status.Success, nil
		}

		if firstCheck {
			if onPending != nil {
				onPending()
			}
			w.logger.Debug("compute job still running", "compute_id", computeID)
		}
		firstCheck = false

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(w.interval):
		}
	}
}
