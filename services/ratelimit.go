package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sentiment-analyst/config"
	"sentiment-analyst/models"
	"sentiment-analyst/observability"
)

// Rate limiter service names
const (
	RateLimitNews = "news"
	RateLimitLLM  = "llm"
)

// RateLimiter enforces a minimum interval between calls to each named service.
// Callers of the same service are served in reservation order; services are
// paced independently of each other.
type RateLimiter struct {
	mu       sync.Mutex
	services map[string]*serviceLimiter
	now      func() time.Time
}

type serviceLimiter struct {
	interval time.Duration
	limiter  *rate.Limiter
	lastCall time.Time
}

// NewRateLimiter creates a limiter with the given minimum interval per service.
// A zero interval disables pacing for that service.
func NewRateLimiter(intervals map[string]time.Duration) *RateLimiter {
	rl := &RateLimiter{
		services: make(map[string]*serviceLimiter, len(intervals)),
		now:      time.Now,
	}
	for name, interval := range intervals {
		rl.services[name] = newServiceLimiter(interval)
	}
	return rl
}

// NewRateLimiterFromConfig creates the news and LLM limiters from configuration
func NewRateLimiterFromConfig(cfg *config.Config) *RateLimiter {
	return NewRateLimiter(map[string]time.Duration{
		RateLimitNews: cfg.NewsInterval(),
		RateLimitLLM:  cfg.LLMInterval(),
	})
}

func newServiceLimiter(interval time.Duration) *serviceLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &serviceLimiter{
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Acquire blocks until the named service may be called again. It returns the
// context's error if ctx ends first; the reserved slot is then released.
// Unknown service names pass immediately.
func (r *RateLimiter) Acquire(ctx context.Context, service string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	sl, ok := r.services[service]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	timer := observability.GetMetrics().NewTimer()
	reservation := sl.limiter.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		observability.Debug("rate limit wait", "service", service, "delay", delay)
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			reservation.Cancel()
			return ctx.Err()
		}
	}
	timer.ObserveRateLimitWait(service)

	r.mu.Lock()
	sl.lastCall = r.now()
	r.mu.Unlock()
	return nil
}

// Status returns the pacing state of every configured service, sorted by name
func (r *RateLimiter) Status() []models.RateLimitState {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make([]models.RateLimitState, 0, len(r.services))
	for name, sl := range r.services {
		states = append(states, models.RateLimitState{
			Service:     name,
			MinInterval: sl.interval,
			LastCall:    sl.lastCall,
		})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Service < states[j].Service })
	return states
}
