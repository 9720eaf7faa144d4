// Package jobs persists the upload-job state machine. The Tracker is the only
// writer once a worker claims a job; API handlers read the same rows to serve
// polling clients.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ls5986/habexa2.0-sub002/internal/domain"
)

// jobStore is the slice of the job repository the tracker needs.
type jobStore interface {
	GetByID(ctx context.Context, id string) (*domain.UploadJob, error)
	Save(ctx context.Context, job *domain.UploadJob) error
	UpdateProgress(ctx context.Context, id string, total, processed, succeeded, failed int) error
}

// Tracker applies job lifecycle transitions and persists them.
type Tracker struct {
	jobs jobStore
}

// NewTracker creates a Tracker backed by the given store.
func NewTracker(jobs jobStore) *Tracker {
	return &Tracker{jobs: jobs}
}

// Start claims a pending job for the calling worker, transitioning it to
// running. Returns domain.ErrInvalidState (wrapped) if the job already left
// pending, which the task runner treats as a programmer error, not a retry.
func (t *Tracker) Start(ctx context.Context, id string) (*domain.UploadJob, error) {
	job, err := t.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	if err := job.Start(time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := t.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save started job %s: %w", id, err)
	}
	return job, nil
}

// UpdateProgress advances the visible counters. Advisory and monotonic by
// contract: a regressing processed count is a caller bug, not clamped here.
func (t *Tracker) UpdateProgress(ctx context.Context, id string, total, processed, succeeded, failed int) error {
	return t.jobs.UpdateProgress(ctx, id, total, processed, succeeded, failed)
}

// Complete moves a running job to its completed terminal state with the
// result payload and final counts. Idempotent on redelivery.
func (t *Tracker) Complete(ctx context.Context, id, result string, succeeded, failed int) error {
	job, err := t.jobs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}
	if err := job.Complete(time.Now().UTC(), result, succeeded, failed); err != nil {
		return err
	}
	return t.jobs.Save(ctx, job)
}

// Fail moves a job to its failed terminal state, capturing the message.
// A no-op when the job already terminated.
func (t *Tracker) Fail(ctx context.Context, id, message string) error {
	job, err := t.jobs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}
	if err := job.Fail(time.Now().UTC(), message); err != nil {
		return err
	}
	return t.jobs.Save(ctx, job)
}
