// Package enrich resolves product identity and pulls marketplace signals from
// external providers. Lookup misses and unconfigured providers are results,
// not errors, so one provider outage never fails a whole catalog.
package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ls5986/habexa2.0-sub002/internal/config"
)

// MarketData is the marketplace snapshot for one ASIN.
type MarketData struct {
	ASIN        string   `json:"asin"`
	SellPrice   float64  `json:"sell_price"`
	FeesTotal   float64  `json:"fees_total"`
	BSR         int      `json:"bsr"`
	ReviewCount int      `json:"review_count"`
	WeightLB    *float64 `json:"weight_lb,omitempty"`
	Found       bool     `json:"found"`
}

// AnalyticsClient fetches marketplace signals for an ASIN.
type AnalyticsClient interface {
	Lookup(ctx context.Context, asin string) (*MarketData, error)
}

type analyticsResponse struct {
	Products []struct {
		ASIN        string   `json:"asin"`
		BuyBoxPrice float64  `json:"buyBoxPrice"`
		FBAFees     float64  `json:"fbaFees"`
		SalesRank   int      `json:"salesRank"`
		ReviewCount int      `json:"reviewCount"`
		WeightLB    *float64 `json:"packageWeightLb"`
	} `json:"products"`
}

// HTTPAnalyticsClient talks to the pricing-analytics provider over REST.
type HTTPAnalyticsClient struct {
	client *resty.Client
	apiKey string
}

// NewAnalyticsClient builds the provider client from config. When no API key
// is configured the client reports every lookup as not found, which lets
// ingestion run end to end in environments without provider credentials.
func NewAnalyticsClient(cfg config.ProviderConfig) *HTTPAnalyticsClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")
	return &HTTPAnalyticsClient{client: client, apiKey: cfg.APIKey}
}

// Lookup fetches current price, fees and rank for an ASIN. A missing product
// returns Found=false with a nil error.
func (c *HTTPAnalyticsClient) Lookup(ctx context.Context, asin string) (*MarketData, error) {
	if c.apiKey == "" {
		return &MarketData{ASIN: asin, Found: false}, nil
	}

	var body analyticsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":   c.apiKey,
			"asin":  asin,
			"stats": "30",
		}).
		SetResult(&body).
		Get("/product")
	if err != nil {
		return nil, fmt.Errorf("analytics lookup %s: %w", asin, err)
	}
	if resp.StatusCode() == 404 {
		return &MarketData{ASIN: asin, Found: false}, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("analytics lookup %s: status %d", asin, resp.StatusCode())
	}
	if len(body.Products) == 0 {
		return &MarketData{ASIN: asin, Found: false}, nil
	}

	p := body.Products[0]
	return &MarketData{
		ASIN:        asin,
		SellPrice:   p.BuyBoxPrice,
		FeesTotal:   p.FBAFees,
		BSR:         p.SalesRank,
		ReviewCount: p.ReviewCount,
		WeightLB:    p.WeightLB,
		Found:       true,
	}, nil
}
