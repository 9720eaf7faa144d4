package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/ls5986/habexa2.0-sub002/internal/config"
	"github.com/ls5986/habexa2.0-sub002/internal/domain"
	"github.com/ls5986/habexa2.0-sub002/internal/enrich"
	"github.com/ls5986/habexa2.0-sub002/internal/logger"
)

type sliceReader struct {
	headers []string
	rows    [][]string
	pos     int
	failAt  int // 1-based row index that returns a stream error; 0 disables
}

func (r *sliceReader) Headers() []string { return r.headers }

func (r *sliceReader) Read() ([]string, error) {
	if r.failAt > 0 && r.pos+1 == r.failAt {
		return nil, errors.New("unexpected end of archive")
	}
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *sliceReader) Close() error { return nil }

type memUpserter struct {
	mu       sync.Mutex
	products []*domain.Product
	failASIN string
}

func (u *memUpserter) Upsert(_ context.Context, p *domain.Product) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if p.ASIN != nil && *p.ASIN == u.failASIN {
		return errors.New("constraint violation")
	}
	u.products = append(u.products, p)
	return nil
}

type memProgress struct {
	mu    sync.Mutex
	calls [][4]int
}

func (p *memProgress) UpdateProgress(_ context.Context, _ string, total, processed, succeeded, failed int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, [4]int{total, processed, succeeded, failed})
	return nil
}

type openLimiter struct{}

func (openLimiter) Wait(ctx context.Context) error { return ctx.Err() }

type fakeAnalytics struct {
	missing map[string]bool
}

func (f *fakeAnalytics) Lookup(_ context.Context, asin string) (*enrich.MarketData, error) {
	if f.missing[asin] {
		return &enrich.MarketData{ASIN: asin, Found: false}, nil
	}
	return &enrich.MarketData{
		ASIN:      asin,
		SellPrice: 29.99,
		FeesTotal: 7.50,
		BSR:       12000,
		Found:     true,
	}, nil
}

type fakeIdentity struct {
	byUPC map[string]string
}

func (f *fakeIdentity) ResolveUPC(_ context.Context, upc string) (string, bool, error) {
	asin, ok := f.byUPC[upc]
	return asin, ok, nil
}

func newTestProcessor(u *memUpserter, p *memProgress, cfg config.IngestConfig) *Processor {
	return NewProcessor(
		u, p,
		&fakeAnalytics{},
		&fakeIdentity{byUPC: map[string]string{"012345678905": "B000000012"}},
		openLimiter{}, openLimiter{},
		cfg,
		logger.New(&logger.Config{Level: "error", Output: io.Discard}),
	)
}

func testJob() *domain.UploadJob {
	return &domain.UploadJob{ID: "job-1", UserID: "user-1", Status: domain.JobStatusRunning}
}

func TestRunContainsRowFailures(t *testing.T) {
	reader := &sliceReader{
		headers: []string{"ASIN", "Title", "Cost", "Qty"},
		rows: [][]string{
			{"B08N5WRWNW", "Echo Dot", "$24.99", "10"},
			{"garbage", "Bad Identifier", "5.00", "1"},
			{"B07FZ8S74R", "Echo Show", "not a price", "1"},
			{"B09B8V1LZ3", "Echo Studio", "99.00", "2"},
		},
	}
	upserter := &memUpserter{}
	progress := &memProgress{}
	processor := newTestProcessor(upserter, progress, config.IngestConfig{BatchSize: 2, Workers: 2})

	result, err := processor.Run(context.Background(), testJob(), reader, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Total != 4 || result.Succeeded != 2 || result.Failed != 2 {
		t.Fatalf("result = %+v, want total 4, succeeded 2, failed 2", result)
	}
	if len(upserter.products) != 2 {
		t.Fatalf("upserted %d products, want 2", len(upserter.products))
	}
	if len(result.Errors) != 2 {
		t.Fatalf("errors = %v, want 2 entries", result.Errors)
	}
	for _, p := range upserter.products {
		if p.SellPrice != 29.99 || p.LastEnrichedAt == nil {
			t.Errorf("product %v missing enrichment", *p.ASIN)
		}
		if p.DealStatus != domain.DealStatusSourced {
			t.Errorf("deal status = %q, want sourced", p.DealStatus)
		}
	}
}

func TestRunReportsProgressPerBatch(t *testing.T) {
	reader := &sliceReader{
		headers: []string{"ASIN", "Cost"},
		rows: [][]string{
			{"B000000001", "1.00"},
			{"B000000002", "1.00"},
			{"B000000003", "1.00"},
			{"B000000004", "1.00"},
			{"B000000005", "1.00"},
		},
	}
	progress := &memProgress{}
	processor := newTestProcessor(&memUpserter{}, progress, config.IngestConfig{BatchSize: 2, Workers: 1})

	if _, err := processor.Run(context.Background(), testJob(), reader, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(progress.calls) != 3 {
		t.Fatalf("progress calls = %d, want 3 (two full batches plus remainder)", len(progress.calls))
	}
	last := progress.calls[len(progress.calls)-1]
	if last[0] != 5 || last[2] != 5 || last[3] != 0 {
		t.Fatalf("final progress = %v, want total 5, succeeded 5", last)
	}
}

func TestRunResolvesUPCRows(t *testing.T) {
	reader := &sliceReader{
		headers: []string{"UPC", "Cost"},
		rows: [][]string{
			{"012345678905", "3.00"},
			{"999999999999", "3.00"}, // unknown to the identity provider
		},
	}
	upserter := &memUpserter{}
	processor := newTestProcessor(upserter, &memProgress{}, config.IngestConfig{BatchSize: 10, Workers: 1})

	result, err := processor.Run(context.Background(), testJob(), reader, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 succeeded, 1 failed", result)
	}
	if len(upserter.products) != 1 || *upserter.products[0].ASIN != "B000000012" {
		t.Fatalf("resolved product = %+v", upserter.products)
	}
}

func TestRunFailsOnBrokenStream(t *testing.T) {
	reader := &sliceReader{
		headers: []string{"ASIN", "Cost"},
		rows: [][]string{
			{"B000000001", "1.00"},
			{"B000000002", "1.00"},
		},
		failAt: 2,
	}
	processor := newTestProcessor(&memUpserter{}, &memProgress{}, config.IngestConfig{BatchSize: 10, Workers: 1})

	_, err := processor.Run(context.Background(), testJob(), reader, nil)
	if err == nil {
		t.Fatal("broken stream should fail the run")
	}
	if !strings.Contains(err.Error(), "catalog stream") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunCapsRecordedErrors(t *testing.T) {
	rows := make([][]string, 10)
	for i := range rows {
		rows[i] = []string{"bad", "not a price"}
	}
	reader := &sliceReader{headers: []string{"ASIN", "Cost"}, rows: rows}
	processor := NewProcessor(
		&memUpserter{}, &memProgress{},
		&fakeAnalytics{}, &fakeIdentity{},
		openLimiter{}, openLimiter{},
		config.IngestConfig{BatchSize: 10, Workers: 1, MaxRowErrors: 3},
		logger.New(&logger.Config{Level: "error", Output: io.Discard}),
	)

	result, err := processor.Run(context.Background(), testJob(), reader, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed != 10 {
		t.Fatalf("failed = %d, want 10", result.Failed)
	}
	if len(result.Errors) != 3 || !result.Truncated {
		t.Fatalf("errors = %d truncated = %v, want capped at 3", len(result.Errors), result.Truncated)
	}
}

func TestRunAppliesSupplierDefaults(t *testing.T) {
	reader := &sliceReader{
		headers: []string{"ASIN", "Cost"},
		rows:    [][]string{{"B000000001", "10.00"}},
	}
	upserter := &memUpserter{}
	processor := newTestProcessor(upserter, &memProgress{}, config.IngestConfig{BatchSize: 10, Workers: 1})

	supplier := &domain.Supplier{ID: "sup-1", ShipsDirect: true, DefaultPrepCost: 0.50}
	if _, err := processor.Run(context.Background(), testJob(), reader, supplier); err != nil {
		t.Fatalf("Run: %v", err)
	}

	p := upserter.products[0]
	if p.SupplierID != "sup-1" {
		t.Errorf("SupplierID = %q", p.SupplierID)
	}
	if p.InboundShipping != 0 {
		t.Errorf("InboundShipping = %v, want 0 for direct ship", p.InboundShipping)
	}
	if p.PrepCost != 0.50 {
		t.Errorf("PrepCost = %v, want 0.50", p.PrepCost)
	}
	// landed = 10 + 0 + 0.50; net = 29.99 - 7.50 - 10.50
	if p.LandedCost != 10.50 || p.NetProfit != 11.99 {
		t.Errorf("landed = %v net = %v", p.LandedCost, p.NetProfit)
	}
}
