package repository

import (
	"context"
	"time"

	"github.com/ls5986/habexa2.0-sub002/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository handles sourced product persistence.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new ProductRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ProductRepository: repository instance bound to db.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Upsert creates or updates a product keyed by (user_id, asin). Only the
// sourcing and financial columns are overwritten on conflict; deal status and
// creation time survive a re-run, which is what makes whole-job retries safe.
func (r *ProductRepository) Upsert(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "asin"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"upc", "title", "supplier_id", "notes",
			"buy_cost", "moq",
			"sell_price", "fees_total", "bsr", "review_count",
			"inbound_shipping", "prep_cost", "landed_cost", "net_profit", "roi",
			"last_enriched_at", "updated_at",
		}),
	}).Create(product).Error
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetByUserAndASIN retrieves a product by its upsert key.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user ID.
//   - asin: resolved ASIN.
// Returns:
//   - *domain.Product: product record if found.
//   - error: non-nil if lookup fails.
func (r *ProductRepository) GetByUserAndASIN(ctx context.Context, userID, asin string) (*domain.Product, error) {
	var product domain.Product
	if err := r.db.WithContext(ctx).First(&product, "user_id = ? AND asin = ?", userID, asin).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListByUser retrieves a user's products with optional deal status filter.
func (r *ProductRepository) ListByUser(ctx context.Context, userID string, status domain.DealStatus, limit, offset int) ([]domain.Product, error) {
	var products []domain.Product
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("deal_status = ?", status)
	}
	if err := query.
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListStale retrieves products whose marketplace signals are older than the
// cutoff, oldest first. Used by the periodic re-pricing sweep.
func (r *ProductRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.Product, error) {
	var products []domain.Product
	if err := r.db.WithContext(ctx).
		Where("asin IS NOT NULL AND (last_enriched_at IS NULL OR last_enriched_at < ?)", cutoff).
		Order("last_enriched_at ASC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateDealStatus advances a product through the sourcing pipeline.
func (r *ProductRepository) UpdateDealStatus(ctx context.Context, id, userID string, status domain.DealStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("deal_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateFinancials overwrites marketplace signals and computed financials,
// stamping last_enriched_at. Used by the re-pricer.
func (r *ProductRepository) UpdateFinancials(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"sell_price":       product.SellPrice,
			"fees_total":       product.FeesTotal,
			"bsr":              product.BSR,
			"review_count":     product.ReviewCount,
			"inbound_shipping": product.InboundShipping,
			"prep_cost":        product.PrepCost,
			"landed_cost":      product.LandedCost,
			"net_profit":       product.NetProfit,
			"roi":              product.ROI,
			"last_enriched_at": product.LastEnrichedAt,
		}).Error
}

// CountByUser counts a user's products.
func (r *ProductRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
