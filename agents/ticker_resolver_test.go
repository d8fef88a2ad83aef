package agents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"sentiment-analyst/models"
)

func TestTickerResolver_ResolveByName(t *testing.T) {
	useTestMetrics(t)
	market := acmeMarket()
	resolver := NewTickerResolver(market)

	record, err := resolver.Resolve(context.Background(), "  Acme   Corp ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Symbol != "ACME" {
		t.Errorf("Symbol = %s, want ACME", record.Symbol)
	}
	if record.CompanyName != "Acme Corporation" {
		t.Errorf("CompanyName = %s, want Acme Corporation", record.CompanyName)
	}
	if record.ResolvedAt.IsZero() {
		t.Error("ResolvedAt should be set")
	}
	if q := market.Queries(); len(q) != 1 || q[0] != "Acme Corp" {
		t.Errorf("upstream queries = %q, want [\"Acme Corp\"]", q)
	}
}

func TestTickerResolver_ExactSymbolWins(t *testing.T) {
	useTestMetrics(t)
	market := &mockMarketData{
		matches: map[string][]models.SymbolMatch{
			"F": {
				{Symbol: "FORD", Name: "Ford Otosan"},
				{Symbol: "F", Name: "Ford Motor Company"},
			},
		},
	}
	resolver := NewTickerResolver(market)

	record, err := resolver.Resolve(context.Background(), "f")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Symbol != "F" {
		t.Errorf("Symbol = %s, want F", record.Symbol)
	}
}

func TestTickerResolver_SecondCallHitsCache(t *testing.T) {
	m := useTestMetrics(t)
	market := acmeMarket()
	resolver := NewTickerResolver(market)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "Acme Corp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := resolver.Resolve(ctx, "acme corp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("second resolve = %+v, want %+v", second, first)
	}
	if market.SearchCalls() != 1 {
		t.Errorf("SearchSymbols calls = %d, want 1", market.SearchCalls())
	}
	if hits := testutil.ToFloat64(m.TickerCacheLookups.WithLabelValues("hit")); hits != 1 {
		t.Errorf("cache hits = %v, want 1", hits)
	}
	if misses := testutil.ToFloat64(m.TickerCacheLookups.WithLabelValues("miss")); misses != 1 {
		t.Errorf("cache misses = %v, want 1", misses)
	}
}

func TestTickerResolver_NotFound(t *testing.T) {
	tests := []struct {
		name    string
		matches []models.SymbolMatch
	}{
		{"no results", nil},
		{"ambiguous", []models.SymbolMatch{
			{Symbol: "ZZA", Name: "Zz Alpha"},
			{Symbol: "ZZB", Name: "Zz Beta"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useTestMetrics(t)
			market := &mockMarketData{matches: map[string][]models.SymbolMatch{"ZZZZQQQ123": tt.matches}}
			resolver := NewTickerResolver(market)

			_, err := resolver.Resolve(context.Background(), "Zzzzqqq123")
			if !errors.Is(err, models.ErrNotFound) {
				t.Fatalf("error = %v, want ErrNotFound", err)
			}
			var nf *models.NotFoundError
			if !errors.As(err, &nf) || nf.Query != "ZZZZQQQ123" {
				t.Errorf("NotFoundError = %+v", nf)
			}
			if len(resolver.Cached()) != 0 {
				t.Error("failed lookups must not be cached")
			}
		})
	}
}

func TestTickerResolver_LookupFailure(t *testing.T) {
	useTestMetrics(t)
	lookupErr := &models.ExternalServiceError{Provider: "mock-market", Op: "search_symbols", StatusCode: 401, Err: errors.New("bad key")}
	resolver := NewTickerResolver(&mockMarketData{searchErr: lookupErr})

	_, err := resolver.Resolve(context.Background(), "Acme")
	var extErr *models.ExternalServiceError
	if !errors.As(err, &extErr) {
		t.Fatalf("error = %v, want ExternalServiceError", err)
	}
	if extErr.Provider != "mock-market" {
		t.Errorf("Provider = %s", extErr.Provider)
	}
}

func TestTickerResolver_EmptyInput(t *testing.T) {
	useTestMetrics(t)
	market := acmeMarket()
	resolver := NewTickerResolver(market)

	_, err := resolver.Resolve(context.Background(), "   ")
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
	if market.SearchCalls() != 0 {
		t.Errorf("SearchSymbols calls = %d, want 0", market.SearchCalls())
	}
}

func TestTickerResolver_ConcurrentMissesShareLookup(t *testing.T) {
	useTestMetrics(t)
	market := acmeMarket()
	market.delay = 50 * time.Millisecond
	resolver := NewTickerResolver(market)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := resolver.Resolve(context.Background(), "ACME")
			if err == nil && record.Symbol != "ACME" {
				err = errors.New("wrong symbol " + record.Symbol)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if market.SearchCalls() != 1 {
		t.Errorf("SearchSymbols calls = %d, want 1", market.SearchCalls())
	}
}

func TestTickerResolver_CachedAndProfile(t *testing.T) {
	useTestMetrics(t)
	market := acmeMarket()
	market.profile = &models.CompanyProfile{Symbol: "ACME", Name: "Acme Corporation", Sector: "Industrials"}
	resolver := NewTickerResolver(market)
	ctx := context.Background()

	if _, err := resolver.Resolve(ctx, "ACME"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := resolver.Resolve(ctx, "Acme Corp"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cached := resolver.Cached()
	if len(cached) != 2 {
		t.Fatalf("Cached() = %d records, want 2", len(cached))
	}
	for _, r := range cached {
		if r.Symbol != "ACME" {
			t.Errorf("cached symbol = %s", r.Symbol)
		}
	}

	profile, err := resolver.Profile(ctx, "ACME")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Sector != "Industrials" {
		t.Errorf("Sector = %s", profile.Sector)
	}
	if resolver.Provider() != "mock-market" {
		t.Errorf("Provider() = %s", resolver.Provider())
	}
}
