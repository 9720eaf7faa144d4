package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ls5986/habexa2.0-sub002/internal/config"
)

func configWithoutKey() config.ProviderConfig {
	return config.ProviderConfig{BaseURL: "https://provider.invalid", Timeout: time.Second}
}

type countingAnalytics struct {
	calls int
	data  *MarketData
	err   error
}

func (c *countingAnalytics) Lookup(_ context.Context, asin string) (*MarketData, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	d := *c.data
	d.ASIN = asin
	return &d, nil
}

func TestCachedAnalyticsLookupMemoizes(t *testing.T) {
	inner := &countingAnalytics{data: &MarketData{SellPrice: 29.99, Found: true}}
	client := NewCachedAnalyticsClient(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		data, err := client.Lookup(ctx, "B08N5WRWNW")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if data.SellPrice != 29.99 {
			t.Fatalf("SellPrice = %v", data.SellPrice)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", inner.calls)
	}

	if _, err := client.Lookup(ctx, "B000000001"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("provider calls = %d, want 2", inner.calls)
	}
}

func TestCachedAnalyticsDoesNotCacheErrors(t *testing.T) {
	inner := &countingAnalytics{err: errors.New("provider down")}
	client := NewCachedAnalyticsClient(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := client.Lookup(ctx, "B08N5WRWNW"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Fatalf("provider calls = %d, errors should not be cached", inner.calls)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	cache := newTTLCache[string](time.Minute)
	current := time.Unix(1000, 0)
	cache.now = func() time.Time { return current }

	cache.set("k", "v")
	if v, ok := cache.get("k"); !ok || v != "v" {
		t.Fatalf("get = (%q, %v), want fresh hit", v, ok)
	}

	current = current.Add(2 * time.Minute)
	if _, ok := cache.get("k"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestUnconfiguredProvidersReportNotFound(t *testing.T) {
	analytics := NewAnalyticsClient(configWithoutKey())
	data, err := analytics.Lookup(context.Background(), "B08N5WRWNW")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if data.Found {
		t.Fatal("unconfigured provider should report not found")
	}

	identity := NewIdentityClient(configWithoutKey())
	_, found, err := identity.ResolveUPC(context.Background(), "012345678905")
	if err != nil {
		t.Fatalf("ResolveUPC: %v", err)
	}
	if found {
		t.Fatal("unconfigured provider should report not found")
	}
}
