package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sentiment-analyst/models"
	"sentiment-analyst/observability"
)

const defaultHTTPTimeout = 30 * time.Second

// maxErrorBody bounds how much of a failed response is kept for the error message
const maxErrorBody = 512

// ServiceOption customizes an HTTP-backed provider
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the provider at a different endpoint (proxies, tests)
func WithBaseURL(baseURL string) ServiceOption {
	return func(o *serviceOptions) {
		if baseURL != "" {
			o.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the provider's HTTP client
func WithHTTPClient(client *http.Client) ServiceOption {
	return func(o *serviceOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithTimeout sets the provider's HTTP client timeout
func WithTimeout(timeout time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		if timeout > 0 {
			o.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func applyOptions(defaultBaseURL string, opts []ServiceOption) serviceOptions {
	o := serviceOptions{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// callExternal runs one outbound call through the provider's circuit breaker,
// recording metrics and a span around it. There is exactly one attempt.
func callExternal[T any](ctx context.Context, service, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(service, op)
	timer := metrics.NewTimer()

	ctx, span := observability.StartSpan(ctx, service+"."+op)
	result, err := WithCircuitBreaker(ctx, service, func() (T, error) {
		return fn(ctx)
	})

	timer.ObserveExternalAPI(service, op)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		metrics.RecordExternalAPIError(service, op, categorizeAPIError(err))
	}
	observability.EndSpan(span, err)
	return result, err
}

// getJSON performs a GET request and decodes a JSON body into out.
// Transport failures and non-200 responses become *models.ExternalServiceError.
func getJSON(ctx context.Context, client *http.Client, provider, op, reqURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &models.ExternalServiceError{Provider: provider, Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &models.ExternalServiceError{Provider: provider, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &models.ExternalServiceError{
			Provider:   provider,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.ExternalServiceError{Provider: provider, Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// categorizeAPIError categorizes an error for metrics purposes
func categorizeAPIError(err error) string {
	if err == nil {
		return "none"
	}

	var extErr *models.ExternalServiceError
	if errors.As(err, &extErr) {
		switch {
		case errors.Is(extErr.Err, ErrCircuitOpen):
			return "circuit_open"
		case extErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limit"
		case extErr.StatusCode == http.StatusUnauthorized || extErr.StatusCode == http.StatusForbidden:
			return "auth_error"
		case extErr.StatusCode >= 500:
			return "server_error"
		case extErr.StatusCode >= 400:
			return "client_error"
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "timeout", "deadline"):
		return "timeout"
	case containsAny(errStr, "rate limit", "429"):
		return "rate_limit"
	case containsAny(errStr, "unauthorized", "401"):
		return "auth_error"
	case containsAny(errStr, "connection", "network"):
		return "connection_error"
	default:
		return "unknown"
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
