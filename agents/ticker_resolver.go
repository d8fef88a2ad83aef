package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sentiment-analyst/models"
	"sentiment-analyst/observability"
)

// TickerResolver maps free-text company names to ticker symbols. Results are
// cached in memory for the life of the process, keyed by normalized input.
type TickerResolver struct {
	lookup MarketDataProvider

	mu    sync.RWMutex
	cache map[string]models.TickerRecord

	group singleflight.Group
	now   func() time.Time
}

// NewTickerResolver creates a resolver backed by the given market-data lookup
func NewTickerResolver(lookup MarketDataProvider) *TickerResolver {
	return &TickerResolver{
		lookup: lookup,
		cache:  make(map[string]models.TickerRecord),
		now:    time.Now,
	}
}

// Resolve returns the ticker for a company name or symbol.
// Concurrent misses for the same input share one lookup.
func (r *TickerResolver) Resolve(ctx context.Context, input string) (models.TickerRecord, error) {
	key := models.NormalizeInput(input)
	if key == "" {
		return models.TickerRecord{}, fmt.Errorf("%w: company name is empty", models.ErrInvalidInput)
	}

	metrics := observability.GetMetrics()
	if record, ok := r.cached(key); ok {
		metrics.RecordTickerCacheHit()
		return record, nil
	}
	metrics.RecordTickerCacheMiss()

	v, err, shared := r.group.Do(key, func() (any, error) {
		if record, ok := r.cached(key); ok {
			return record, nil
		}
		return r.lookupTicker(ctx, key, models.CollapseSpaces(input))
	})
	if err != nil {
		return models.TickerRecord{}, err
	}

	record := v.(models.TickerRecord)
	observability.Debug("ticker resolved",
		"input", key,
		"symbol", record.Symbol,
		"shared", shared)
	return record, nil
}

func (r *TickerResolver) lookupTicker(ctx context.Context, key, query string) (models.TickerRecord, error) {
	matches, err := r.lookup.SearchSymbols(ctx, query)
	if err != nil {
		return models.TickerRecord{}, err
	}

	match, err := selectMatch(key, matches)
	if err != nil {
		return models.TickerRecord{}, err
	}

	name := match.Name
	if name == "" {
		name = query
	}
	record := models.TickerRecord{
		CompanyName: name,
		Symbol:      match.Symbol,
		Exchange:    match.Exchange,
		ResolvedAt:  r.now().UTC(),
	}

	r.mu.Lock()
	r.cache[key] = record
	r.mu.Unlock()

	return record, nil
}

// selectMatch picks the candidate for key: an exact symbol match first, then a
// company whose core name equals the input's, then a lone result
func selectMatch(key string, matches []models.SymbolMatch) (models.SymbolMatch, error) {
	if len(matches) == 0 {
		return models.SymbolMatch{}, &models.NotFoundError{Query: key, Reason: "no matching symbols"}
	}

	for _, m := range matches {
		if strings.EqualFold(m.Symbol, key) {
			return m, nil
		}
	}

	core := models.CoreCompanyName(key)
	for _, m := range matches {
		if core != "" && models.CoreCompanyName(m.Name) == core {
			return m, nil
		}
	}

	if len(matches) == 1 {
		return matches[0], nil
	}

	return models.SymbolMatch{}, &models.NotFoundError{
		Query:  key,
		Reason: fmt.Sprintf("ambiguous, %d candidates", len(matches)),
	}
}

func (r *TickerResolver) cached(key string) (models.TickerRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.cache[key]
	return record, ok
}

// Cached returns a snapshot of every resolved ticker, ordered by symbol
func (r *TickerResolver) Cached() []models.TickerRecord {
	r.mu.RLock()
	records := make([]models.TickerRecord, 0, len(r.cache))
	for _, record := range r.cache {
		records = append(records, record)
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].Symbol != records[j].Symbol {
			return records[i].Symbol < records[j].Symbol
		}
		return records[i].CompanyName < records[j].CompanyName
	})
	return records
}

// Profile fetches descriptive company data for a resolved symbol
func (r *TickerResolver) Profile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	return r.lookup.GetCompanyProfile(ctx, symbol)
}

// Provider returns the name of the market-data lookup in use
func (r *TickerResolver) Provider() string {
	return r.lookup.Name()
}
