package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every NotFoundError
	ErrNotFound = errors.New("not found")

	// ErrNoArticlesFound means the news search matched nothing in the lookback window
	ErrNoArticlesFound = errors.New("no articles found")

	// ErrInvalidInput is returned for out-of-range or empty request parameters
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError is returned when a company name cannot be mapped to a ticker
type NotFoundError struct {
	Query  string
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("ticker not found for %q: %s", e.Query, e.Reason)
	}
	return fmt.Sprintf("ticker not found for %q", e.Query)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ExternalServiceError wraps a network, auth or quota failure of a provider
type ExternalServiceError struct {
	Provider   string
	Op         string
	StatusCode int
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// AnalysisError is returned when the LLM call itself fails
type AnalysisError struct {
	Provider string
	Err      error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("sentiment analysis via %s failed: %v", e.Provider, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// PipelineError reports the stage at which an analysis run failed
type PipelineError struct {
	Stage Stage
	Cause error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("analysis failed while %s: %v", e.Stage, e.Cause)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// ErrorKind returns a short machine-readable label for an error, used in API
// responses and metrics
func ErrorKind(err error) string {
	var extErr *ExternalServiceError
	var analysisErr *AnalysisError
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoArticlesFound):
		return "no_articles"
	case errors.As(err, &analysisErr):
		return "analysis_error"
	case errors.As(err, &extErr):
		return "external_service"
	default:
		return "internal"
	}
}
