package domain

import (
	"fmt"
	"time"
)

// JobStatus represents the status of an upload job.
// Values include JobStatusPending, JobStatusRunning, JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobKind identifies what a background job does.
type JobKind string

const (
	JobKindCatalogUpload JobKind = "catalog_upload"
	JobKindReprice       JobKind = "reprice"
)

// UploadJob represents one background processing run and its progress metadata.
// It is owned exclusively by the worker that claims it; API clients only read it.
type UploadJob struct {
	ID            string     `gorm:"type:text;primaryKey" json:"id"`
	UserID        string     `gorm:"type:text;not null;index" json:"user_id"`
	Kind          JobKind    `gorm:"type:text;not null" json:"kind"`
	Status        JobStatus  `gorm:"default:pending;index" json:"status"`
	TotalRows     int        `gorm:"default:0" json:"total_rows"`
	ProcessedRows int        `gorm:"default:0" json:"processed_rows"`
	SucceededRows int        `gorm:"default:0" json:"succeeded_rows"`
	FailedRows    int        `gorm:"default:0" json:"failed_rows"`
	FileName      string     `json:"file_name,omitempty"`
	ObjectKey     string     `json:"object_key,omitempty"`
	MappingJSON   string     `json:"mapping_json,omitempty"`
	Result        string     `json:"result,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for UploadJob.
func (UploadJob) TableName() string {
	return "upload_jobs"
}

// IsTerminal reports whether the job reached a final state.
// Terminal jobs are immutable.
func (j *UploadJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Start transitions the job from pending to running and records the start time.
// Returns ErrInvalidState if the job is not pending.
func (j *UploadJob) Start(now time.Time) error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("start job %s from %q: %w", j.ID, j.Status, ErrInvalidState)
	}
	j.Status = JobStatusRunning
	j.StartedAt = &now
	return nil
}

// Complete transitions the job to completed with final counts and a result
// payload. Retrying a terminal transition is a no-op so at-least-once task
// delivery never trips over an already finished job; calling Complete on a
// job that never started is ErrInvalidState.
func (j *UploadJob) Complete(now time.Time, result string, succeeded, failed int) error {
	if j.IsTerminal() {
		return nil
	}
	if j.Status != JobStatusRunning {
		return fmt.Errorf("complete job %s from %q: %w", j.ID, j.Status, ErrInvalidState)
	}
	j.Status = JobStatusCompleted
	j.Result = result
	j.SucceededRows = succeeded
	j.FailedRows = failed
	j.CompletedAt = &now
	return nil
}

// Fail transitions the job to failed from any non-terminal state, capturing
// the message. A no-op when the job is already terminal.
func (j *UploadJob) Fail(now time.Time, message string) error {
	if j.IsTerminal() {
		return nil
	}
	j.Status = JobStatusFailed
	j.ErrorMessage = message
	j.CompletedAt = &now
	return nil
}
