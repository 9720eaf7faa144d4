package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/ls5986/habexa2.0-sub002/internal/domain"
)

type memJobStore struct {
	jobs map[string]*domain.UploadJob
}

func newMemJobStore(jobs ...*domain.UploadJob) *memJobStore {
	s := &memJobStore{jobs: make(map[string]*domain.UploadJob)}
	for _, j := range jobs {
		copied := *j
		s.jobs[j.ID] = &copied
	}
	return s
}

func (s *memJobStore) GetByID(_ context.Context, id string) (*domain.UploadJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	copied := *job
	return &copied, nil
}

func (s *memJobStore) Save(_ context.Context, job *domain.UploadJob) error {
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memJobStore) UpdateProgress(_ context.Context, id string, total, processed, succeeded, failed int) error {
	job, ok := s.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	job.TotalRows = total
	job.ProcessedRows = processed
	job.SucceededRows = succeeded
	job.FailedRows = failed
	return nil
}

func TestTrackerStartClaimsPendingJob(t *testing.T) {
	store := newMemJobStore(&domain.UploadJob{ID: "j1", Status: domain.JobStatusPending})
	tracker := NewTracker(store)

	job, err := tracker.Start(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if job.Status != domain.JobStatusRunning {
		t.Fatalf("status = %q, want running", job.Status)
	}

	// Second claim sees the persisted running state.
	if _, err := tracker.Start(context.Background(), "j1"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("second Start error = %v, want ErrInvalidState", err)
	}
}

func TestTrackerCompleteThenFailIsNoOp(t *testing.T) {
	store := newMemJobStore(&domain.UploadJob{ID: "j2", Status: domain.JobStatusRunning})
	tracker := NewTracker(store)
	ctx := context.Background()

	if err := tracker.Complete(ctx, "j2", `{"rows":10}`, 8, 2); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := tracker.Fail(ctx, "j2", "redelivered"); err != nil {
		t.Fatalf("Fail after Complete should be a no-op, got %v", err)
	}

	job, _ := store.GetByID(ctx, "j2")
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %q, want completed", job.Status)
	}
	if job.SucceededRows != 8 || job.FailedRows != 2 {
		t.Fatalf("counts = (%d, %d), want (8, 2)", job.SucceededRows, job.FailedRows)
	}
}

func TestTrackerUpdateProgress(t *testing.T) {
	store := newMemJobStore(&domain.UploadJob{ID: "j3", Status: domain.JobStatusRunning})
	tracker := NewTracker(store)

	if err := tracker.UpdateProgress(context.Background(), "j3", 100, 40, 38, 2); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	job, _ := store.GetByID(context.Background(), "j3")
	if job.TotalRows != 100 || job.ProcessedRows != 40 {
		t.Fatalf("progress = (%d/%d)", job.ProcessedRows, job.TotalRows)
	}
}
