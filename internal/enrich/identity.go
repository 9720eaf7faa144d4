package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ls5986/habexa2.0-sub002/internal/config"
)

// IdentityClient resolves a UPC/EAN barcode to an ASIN.
type IdentityClient interface {
	ResolveUPC(ctx context.Context, upc string) (asin string, found bool, err error)
}

type identityResponse struct {
	Items []struct {
		ASIN string `json:"asin"`
	} `json:"items"`
}

// HTTPIdentityClient resolves barcodes against the identity provider.
type HTTPIdentityClient struct {
	client *resty.Client
	apiKey string
}

// NewIdentityClient builds the identity provider client from config.
func NewIdentityClient(cfg config.ProviderConfig) *HTTPIdentityClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")
	return &HTTPIdentityClient{client: client, apiKey: cfg.APIKey}
}

// ResolveUPC maps a barcode to an ASIN. Unknown barcodes and an unconfigured
// provider both return found=false without an error.
func (c *HTTPIdentityClient) ResolveUPC(ctx context.Context, upc string) (string, bool, error) {
	if c.apiKey == "" {
		return "", false, nil
	}

	var body identityResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetQueryParam("upc", upc).
		SetResult(&body).
		Get("/lookup")
	if err != nil {
		return "", false, fmt.Errorf("identity lookup %s: %w", upc, err)
	}
	if resp.StatusCode() == 404 {
		return "", false, nil
	}
	if resp.IsError() {
		return "", false, fmt.Errorf("identity lookup %s: status %d", upc, resp.StatusCode())
	}
	if len(body.Items) == 0 || body.Items[0].ASIN == "" {
		return "", false, nil
	}
	return body.Items[0].ASIN, true, nil
}
