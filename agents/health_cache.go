package agents

import (
	"sync"
	"time"
)

// ProviderHealth is the availability of one external provider
type ProviderHealth struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Available    bool   `json:"available"`
	CircuitState string `json:"circuit_state"`
	Error        string `json:"error,omitempty"`
}

// HealthReport summarizes the availability of every provider the pipeline uses
type HealthReport struct {
	Healthy   bool             `json:"healthy"`
	Providers []ProviderHealth `json:"providers"`
	CheckedAt time.Time        `json:"checked_at"`
}

// HealthCache keeps the last HealthReport for a TTL so frequent health
// polls do not probe providers on every request.
type HealthCache struct {
	mu     sync.RWMutex
	report HealthReport
	stored bool
	ttl    time.Duration
	now    func() time.Time
}

// NewHealthCache creates a HealthCache. A TTL of 0 disables caching.
func NewHealthCache(ttl time.Duration) *HealthCache {
	return &HealthCache{
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the cached report and whether it is still fresh
func (c *HealthCache) Get() (HealthReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.stored || c.now().Sub(c.report.CheckedAt) >= c.ttl {
		return c.report, false
	}
	return c.report, true
}

// Set stores a report. Its CheckedAt is stamped if unset.
func (c *HealthCache) Set(report HealthReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if report.CheckedAt.IsZero() {
		report.CheckedAt = c.now()
	}
	c.report = report
	c.stored = true
}

// Invalidate forces the next check to probe providers again
func (c *HealthCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = false
}

// DefaultHealthCacheTTL is used when no TTL is configured
const DefaultHealthCacheTTL = 30 * time.Second
