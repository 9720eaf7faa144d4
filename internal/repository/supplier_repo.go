package repository

import (
	"context"

	"github.com/ls5986/habexa2.0-sub002/internal/domain"
	"gorm.io/gorm"
)

// SupplierRepository handles supplier persistence.
type SupplierRepository struct {
	db *gorm.DB
}

// NewSupplierRepository creates a new SupplierRepository.
func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Create inserts a new supplier record.
func (r *SupplierRepository) Create(ctx context.Context, supplier *domain.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

// GetByID retrieves a supplier scoped to its owning user.
func (r *SupplierRepository) GetByID(ctx context.Context, id, userID string) (*domain.Supplier, error) {
	var supplier domain.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// ListByUser retrieves all suppliers for a user.
func (r *SupplierRepository) ListByUser(ctx context.Context, userID string) ([]domain.Supplier, error) {
	var suppliers []domain.Supplier
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

// Update persists supplier changes.
func (r *SupplierRepository) Update(ctx context.Context, supplier *domain.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}
