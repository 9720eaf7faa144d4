package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ls5986/habexa2.0-sub002/internal/domain"
	"github.com/ls5986/habexa2.0-sub002/internal/enrich"
	"github.com/ls5986/habexa2.0-sub002/internal/ingest"
	"github.com/ls5986/habexa2.0-sub002/internal/logger"
	"github.com/ls5986/habexa2.0-sub002/internal/pricing"
	"github.com/ls5986/habexa2.0-sub002/internal/queue"
)

type staleProductStore interface {
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.Product, error)
	UpdateFinancials(ctx context.Context, product *domain.Product) error
}

// RepriceHandler refreshes marketplace signals and recomputes financials for
// products that have not been enriched recently.
type RepriceHandler struct {
	products  staleProductStore
	suppliers supplierGetter
	analytics enrich.AnalyticsClient
	limiter   ingest.Limiter
	log       *logger.Logger
}

// NewRepriceHandler wires the re-pricing task handler.
func NewRepriceHandler(
	products staleProductStore,
	suppliers supplierGetter,
	analytics enrich.AnalyticsClient,
	limiter ingest.Limiter,
	log *logger.Logger,
) *RepriceHandler {
	return &RepriceHandler{
		products:  products,
		suppliers: suppliers,
		analytics: analytics,
		limiter:   limiter,
		log:       log,
	}
}

// ProcessTask handles one re-pricing sweep. Per-product failures are logged
// and skipped; only a dead context aborts the sweep.
func (h *RepriceHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload queue.RepricePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", queue.TypeReprice, err)
	}
	if payload.Limit <= 0 {
		payload.Limit = 500
	}
	if payload.StaleBefore.IsZero() {
		payload.StaleBefore = time.Now().Add(-6 * time.Hour)
	}

	stale, err := h.products.ListStale(ctx, payload.StaleBefore, payload.Limit)
	if err != nil {
		return fmt.Errorf("list stale products: %w", err)
	}

	refreshed, skipped := 0, 0
	for i := range stale {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.repriceOne(ctx, &stale[i]); err != nil {
			h.log.WithField("product_id", stale[i].ID).WithError(err).Warn("reprice skipped")
			skipped++
			continue
		}
		refreshed++
	}

	h.log.WithFields(logger.Fields{
		"refreshed": refreshed,
		"skipped":   skipped,
	}).Info("reprice sweep finished")
	return nil
}

func (h *RepriceHandler) repriceOne(ctx context.Context, product *domain.Product) error {
	if product.ASIN == nil {
		return fmt.Errorf("product %s has no ASIN", product.ID)
	}
	if err := h.limiter.Wait(ctx); err != nil {
		return err
	}

	market, err := h.analytics.Lookup(ctx, *product.ASIN)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	product.LastEnrichedAt = &now
	if market.Found {
		product.SellPrice = market.SellPrice
		product.FeesTotal = market.FeesTotal
		product.BSR = market.BSR
		product.ReviewCount = market.ReviewCount

		in := pricing.Inputs{
			BuyCost:   product.BuyCost,
			SellPrice: market.SellPrice,
			FeesTotal: market.FeesTotal,
			WeightLB:  market.WeightLB,
		}
		if product.SupplierID != "" {
			if supplier, err := h.suppliers.GetByID(ctx, product.SupplierID, product.UserID); err == nil {
				in.ShipsDirect = supplier.ShipsDirect
				if supplier.InboundRate > 0 {
					rate := supplier.InboundRate
					in.InboundRatePerLB = &rate
				}
				in.DefaultPrepCost = supplier.DefaultPrepCost
			}
		}
		f := pricing.Compute(in)
		product.InboundShipping = f.InboundShipping
		product.PrepCost = f.PrepCost
		product.LandedCost = f.LandedCost
		product.NetProfit = f.NetProfit
		product.ROI = f.ROI
	}

	// Stamp even on a miss so the sweep does not rescan the same product
	// every cycle.
	return h.products.UpdateFinancials(ctx, product)
}
