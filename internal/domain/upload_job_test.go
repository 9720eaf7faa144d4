package domain

import (
	"errors"
	"testing"
	"time"
)

func TestUploadJobLifecycle(t *testing.T) {
	now := time.Now()
	job := &UploadJob{ID: "job-1", Status: JobStatusPending}

	if err := job.Start(now); err != nil {
		t.Fatalf("Start on pending job: %v", err)
	}
	if job.Status != JobStatusRunning {
		t.Fatalf("status = %q, want running", job.Status)
	}
	if job.StartedAt == nil {
		t.Fatal("StartedAt not recorded")
	}

	// Second Start must fail with the invalid-state sentinel.
	if err := job.Start(now); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Start error = %v, want ErrInvalidState", err)
	}

	if err := job.Complete(now, `{"ok":true}`, 9, 1); err != nil {
		t.Fatalf("Complete on running job: %v", err)
	}
	if job.Status != JobStatusCompleted {
		t.Fatalf("status = %q, want completed", job.Status)
	}
	if job.SucceededRows != 9 || job.FailedRows != 1 {
		t.Fatalf("counts = (%d, %d), want (9, 1)", job.SucceededRows, job.FailedRows)
	}
}

func TestUploadJobCompleteRequiresRunning(t *testing.T) {
	now := time.Now()
	job := &UploadJob{ID: "job-2", Status: JobStatusPending}

	if err := job.Complete(now, "", 0, 0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Complete on pending job error = %v, want ErrInvalidState", err)
	}
}

func TestUploadJobTerminalIdempotent(t *testing.T) {
	now := time.Now()
	job := &UploadJob{ID: "job-3", Status: JobStatusPending}
	if err := job.Start(now); err != nil {
		t.Fatal(err)
	}
	if err := job.Complete(now, "", 5, 0); err != nil {
		t.Fatal(err)
	}

	// Fail after Complete is a no-op, not an error: the task runner may
	// redeliver a finished job.
	if err := job.Fail(now, "late failure"); err != nil {
		t.Fatalf("Fail after Complete: %v", err)
	}
	if job.Status != JobStatusCompleted {
		t.Fatalf("status = %q, want completed after no-op Fail", job.Status)
	}
	if job.ErrorMessage != "" {
		t.Fatalf("error message set on no-op Fail: %q", job.ErrorMessage)
	}

	// Retried Complete is also a no-op.
	if err := job.Complete(now, "", 0, 0); err != nil {
		t.Fatalf("retried Complete: %v", err)
	}
	if job.SucceededRows != 5 {
		t.Fatalf("retried Complete overwrote counts: %d", job.SucceededRows)
	}
}

func TestUploadJobFailFromAnyNonTerminal(t *testing.T) {
	now := time.Now()

	for _, status := range []JobStatus{JobStatusPending, JobStatusRunning} {
		job := &UploadJob{ID: "job-4", Status: status}
		if err := job.Fail(now, "stream corrupted"); err != nil {
			t.Fatalf("Fail from %q: %v", status, err)
		}
		if job.Status != JobStatusFailed {
			t.Fatalf("status = %q, want failed", job.Status)
		}
		if job.ErrorMessage != "stream corrupted" {
			t.Fatalf("error message = %q", job.ErrorMessage)
		}
	}
}
