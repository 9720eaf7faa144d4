package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ls5986/habexa2.0-sub002/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.UploadJob{}, &domain.Product{}, &domain.Supplier{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func asinPtr(s string) *string { return &s }

func TestUpsertSameUserAndASINKeepsOneRow(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))
	ctx := context.Background()

	first := &domain.Product{
		ID:      "p1",
		UserID:  "u1",
		ASIN:    asinPtr("B08N5WRWNW"),
		Title:   "Echo Dot",
		BuyCost: 10.00,
		MOQ:     5,
	}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.UpdateDealStatus(ctx, "p1", "u1", domain.DealStatusOrdered); err != nil {
		t.Fatalf("update status: %v", err)
	}

	// Re-processing the same catalog generates a fresh row ID for the same
	// (user, ASIN); the conflict clause must fold it into the existing row.
	second := &domain.Product{
		ID:      "p2",
		UserID:  "u1",
		ASIN:    asinPtr("B08N5WRWNW"),
		Title:   "Echo Dot (4th Gen)",
		BuyCost: 12.00,
		MOQ:     10,
	}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	count, err := repo.CountByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows = %d, want 1 after re-run", count)
	}

	got, err := repo.GetByUserAndASIN(ctx, "u1", "B08N5WRWNW")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "p1" {
		t.Errorf("ID = %q, original row identity must survive", got.ID)
	}
	if got.BuyCost != 12.00 || got.Title != "Echo Dot (4th Gen)" || got.MOQ != 10 {
		t.Errorf("sourcing fields not refreshed: %+v", got)
	}
	if got.DealStatus != domain.DealStatusOrdered {
		t.Errorf("deal status = %q, pipeline state must survive a re-run", got.DealStatus)
	}
}

func TestUpsertDistinctUsersKeepSeparateRows(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))
	ctx := context.Background()

	for _, userID := range []string{"u1", "u2"} {
		p := &domain.Product{
			ID:      "p-" + userID,
			UserID:  userID,
			ASIN:    asinPtr("B08N5WRWNW"),
			BuyCost: 10.00,
		}
		if err := repo.Upsert(ctx, p); err != nil {
			t.Fatalf("upsert for %s: %v", userID, err)
		}
	}

	for _, userID := range []string{"u1", "u2"} {
		count, err := repo.CountByUser(ctx, userID)
		if err != nil {
			t.Fatalf("count for %s: %v", userID, err)
		}
		if count != 1 {
			t.Fatalf("rows for %s = %d, want 1", userID, count)
		}
	}
}

func TestUpdateDealStatusUnknownProduct(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))

	err := repo.UpdateDealStatus(context.Background(), "missing", "u1", domain.DealStatusAnalyzed)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}
