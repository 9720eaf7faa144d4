package repository

import (
	"context"

	"github.com/ls5986/habexa2.0-sub002/internal/domain"
	"gorm.io/gorm"
)

// JobRepository handles upload job persistence.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.UploadJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.UploadJob: job record if found.
//   - error: non-nil if lookup fails (gorm.ErrRecordNotFound when absent).
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.UploadJob, error) {
	var job domain.UploadJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// GetByIDForUser retrieves a job scoped to its owning user.
func (r *JobRepository) GetByIDForUser(ctx context.Context, id, userID string) (*domain.UploadJob, error) {
	var job domain.UploadJob
	if err := r.db.WithContext(ctx).First(&job, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByUser retrieves a user's jobs newest first with pagination.
func (r *JobRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.UploadJob, error) {
	var jobs []domain.UploadJob
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Save persists the full job record, used after lifecycle transitions.
func (r *JobRepository) Save(ctx context.Context, job *domain.UploadJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// UpdateProgress writes only the progress counters so concurrent readers see
// incremental movement without the tracker re-writing terminal fields.
func (r *JobRepository) UpdateProgress(ctx context.Context, id string, total, processed, succeeded, failed int) error {
	return r.db.WithContext(ctx).
		Model(&domain.UploadJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_rows":     total,
			"processed_rows": processed,
			"succeeded_rows": succeeded,
			"failed_rows":    failed,
		}).Error
}
