package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ls5986/habexa2.0-sub002/internal/config"
	"github.com/ls5986/habexa2.0-sub002/internal/domain"
	"github.com/ls5986/habexa2.0-sub002/internal/enrich"
	"github.com/ls5986/habexa2.0-sub002/internal/logger"
	"github.com/ls5986/habexa2.0-sub002/internal/mapper"
	"github.com/ls5986/habexa2.0-sub002/internal/pricing"
)

// enrichTimeout caps one provider call per row. A hung call fails the row,
// not the batch.
const enrichTimeout = 30 * time.Second

// ProductUpserter persists one canonical product.
type ProductUpserter interface {
	Upsert(ctx context.Context, product *domain.Product) error
}

// ProgressReporter publishes counters while the job runs.
type ProgressReporter interface {
	UpdateProgress(ctx context.Context, id string, total, processed, succeeded, failed int) error
}

// Limiter gates calls to one external provider.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Result summarizes one processing run. Errors holds at most MaxRowErrors
// entries; Truncated reports whether more were dropped.
type Result struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Errors    []mapper.RowError `json:"errors,omitempty"`
	Truncated bool              `json:"truncated,omitempty"`
}

// Processor runs one catalog file through mapping, enrichment, profitability
// and upsert. Row failures are counted and logged; only a broken input stream
// or a dead context aborts the run.
type Processor struct {
	products       ProductUpserter
	progress       ProgressReporter
	analytics      enrich.AnalyticsClient
	identity       enrich.IdentityClient
	analyticsLimit Limiter
	identityLimit  Limiter
	cfg            config.IngestConfig
	log            *logger.Logger
}

// NewProcessor wires a processor from its collaborators.
func NewProcessor(
	products ProductUpserter,
	progress ProgressReporter,
	analytics enrich.AnalyticsClient,
	identity enrich.IdentityClient,
	analyticsLimit, identityLimit Limiter,
	cfg config.IngestConfig,
	log *logger.Logger,
) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxRowErrors <= 0 {
		cfg.MaxRowErrors = 500
	}
	return &Processor{
		products:       products,
		progress:       progress,
		analytics:      analytics,
		identity:       identity,
		analyticsLimit: analyticsLimit,
		identityLimit:  identityLimit,
		cfg:            cfg,
		log:            log,
	}
}

// Run processes the stream for one job. Returns the final result, or an error
// when the stream breaks or the context dies, in which case the caller fails
// the job and asynq may redeliver it.
func (p *Processor) Run(ctx context.Context, job *domain.UploadJob, reader RecordReader, supplier *domain.Supplier) (*Result, error) {
	mapping, err := p.resolveMapping(job, reader.Headers())
	if err != nil {
		return nil, err
	}
	if warnings := mapper.ValidateMapping(mapping); len(warnings) > 0 {
		p.log.WithField(logger.FieldJobID, job.ID).Warnf("mapping warnings: %v", warnings)
	}

	result := &Result{}
	batch := make([]mapper.Row, 0, p.cfg.BatchSize)
	rowNum := 1 // header row

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		p.processBatch(ctx, job, supplier, batch, result)
		batch = batch[:0]
		if err := p.progress.UpdateProgress(ctx, job.ID, result.Total, result.Total, result.Succeeded, result.Failed); err != nil {
			p.log.WithField(logger.FieldJobID, job.ID).WithError(err).Warn("progress update failed")
		}
		return ctx.Err()
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog stream: %w", err)
		}
		rowNum++

		row := mapper.ApplyMapping(record, mapping, rowNum)
		result.Total++
		batch = append(batch, row)

		if len(batch) >= p.cfg.BatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	p.log.WithFields(logger.Fields{
		logger.FieldJobID: job.ID,
		logger.FieldRows:  result.Total,
		"succeeded":       result.Succeeded,
		"failed":          result.Failed,
	}).Info("catalog processing finished")
	return result, nil
}

func (p *Processor) resolveMapping(job *domain.UploadJob, headers []string) (mapper.ColumnMapping, error) {
	if job.MappingJSON != "" {
		var mapping mapper.ColumnMapping
		if err := json.Unmarshal([]byte(job.MappingJSON), &mapping); err != nil {
			return mapper.ColumnMapping{}, fmt.Errorf("decode job mapping: %w", err)
		}
		return mapping, nil
	}
	return mapper.AutoMapColumns(headers), nil
}

// processBatch enriches valid rows with a bounded worker pool, then upserts
// sequentially. Rows that already carry mapping errors skip straight to the
// failure counters.
func (p *Processor) processBatch(ctx context.Context, job *domain.UploadJob, supplier *domain.Supplier, batch []mapper.Row, result *Result) {
	type outcome struct {
		product *domain.Product
		errs    []mapper.RowError
	}
	outcomes := make([]outcome, len(batch))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)
	for i := range batch {
		if !batch[i].Valid() {
			outcomes[i] = outcome{errs: batch[i].Errors}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			product, rowErr := p.enrichRow(ctx, job, supplier, &batch[i])
			if rowErr != nil {
				outcomes[i] = outcome{errs: []mapper.RowError{*rowErr}}
				return
			}
			outcomes[i] = outcome{product: product}
		}(i)
	}
	wg.Wait()

	for i := range outcomes {
		o := outcomes[i]
		if o.product != nil {
			if err := p.products.Upsert(ctx, o.product); err != nil {
				p.log.WithField(logger.FieldJobID, job.ID).WithError(err).Error("product upsert failed")
				o.errs = []mapper.RowError{{Row: batch[i].Num, Message: "failed to save product"}}
				o.product = nil
			}
		}
		if o.product != nil {
			result.Succeeded++
			continue
		}
		result.Failed++
		for _, e := range o.errs {
			if len(result.Errors) < p.cfg.MaxRowErrors {
				result.Errors = append(result.Errors, e)
			} else {
				result.Truncated = true
			}
		}
	}
}

// enrichRow resolves identity, pulls marketplace data and computes
// financials. Returns a row-level error when the row cannot become a product.
func (p *Processor) enrichRow(ctx context.Context, job *domain.UploadJob, supplier *domain.Supplier, row *mapper.Row) (*domain.Product, *mapper.RowError) {
	rowNum := row.Num

	asin := row.ASIN
	if asin == "" && row.UPC != "" {
		if err := p.identityLimit.Wait(ctx); err != nil {
			return nil, &mapper.RowError{Row: rowNum, Message: "canceled before identity lookup"}
		}
		callCtx, cancel := context.WithTimeout(ctx, enrichTimeout)
		resolved, found, err := p.identity.ResolveUPC(callCtx, row.UPC)
		cancel()
		if err != nil {
			p.log.WithField(logger.FieldJobID, job.ID).WithError(err).Warn("identity lookup failed")
			return nil, &mapper.RowError{Row: rowNum, Field: "upc", Message: "identity lookup failed"}
		}
		if !found {
			return nil, &mapper.RowError{Row: rowNum, Field: "upc", Message: fmt.Sprintf("no ASIN found for UPC %s", row.UPC)}
		}
		asin = resolved
	}
	if asin == "" {
		return nil, &mapper.RowError{Row: rowNum, Message: "row has no product identifier (ASIN or UPC)"}
	}

	if err := p.analyticsLimit.Wait(ctx); err != nil {
		return nil, &mapper.RowError{Row: rowNum, Message: "canceled before marketplace lookup"}
	}
	callCtx, cancel := context.WithTimeout(ctx, enrichTimeout)
	market, err := p.analytics.Lookup(callCtx, asin)
	cancel()
	if err != nil {
		p.log.WithField(logger.FieldJobID, job.ID).WithError(err).Warn("marketplace lookup failed")
		return nil, &mapper.RowError{Row: rowNum, Field: "identifier", Message: "marketplace lookup failed"}
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:         uuid.NewString(),
		UserID:     job.UserID,
		ASIN:       &asin,
		UPC:        row.UPC,
		Title:      row.Title,
		Notes:      row.Notes,
		BuyCost:    row.BuyCost,
		MOQ:        row.MOQ,
		DealStatus: domain.DealStatusSourced,
	}
	if supplier != nil {
		product.SupplierID = supplier.ID
	}

	// An unknown ASIN is still a sourced product; it just carries no
	// marketplace signals until a later re-price finds it.
	if market.Found {
		product.SellPrice = market.SellPrice
		product.FeesTotal = market.FeesTotal
		product.BSR = market.BSR
		product.ReviewCount = market.ReviewCount
		product.LastEnrichedAt = &now

		in := pricing.Inputs{
			BuyCost:   row.BuyCost,
			SellPrice: market.SellPrice,
			FeesTotal: market.FeesTotal,
			WeightLB:  market.WeightLB,
		}
		if supplier != nil {
			in.ShipsDirect = supplier.ShipsDirect
			if supplier.InboundRate > 0 {
				rate := supplier.InboundRate
				in.InboundRatePerLB = &rate
			}
			in.DefaultPrepCost = supplier.DefaultPrepCost
		}
		f := pricing.Compute(in)
		product.InboundShipping = f.InboundShipping
		product.PrepCost = f.PrepCost
		product.LandedCost = f.LandedCost
		product.NetProfit = f.NetProfit
		product.ROI = f.ROI
	}

	return product, nil
}
