package agents

import (
	"context"

	"sentiment-analyst/services"
)

// Type aliases for the provider interfaces defined in the services package.
// They let callers wire agents without importing concrete implementations.
type LLMService = services.LLMService
type NewsProvider = services.NewsProvider
type MarketDataProvider = services.MarketDataProvider
type NewsQuery = services.NewsQuery

// Limiter paces outbound calls per named service.
// *services.RateLimiter satisfies it.
type Limiter interface {
	Acquire(ctx context.Context, service string) error
}

var _ Limiter = (*services.RateLimiter)(nil)
