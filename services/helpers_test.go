package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// useFreshBreakers installs an empty circuit breaker registry for the test
func useFreshBreakers(t *testing.T) *CircuitBreakerRegistry {
	t.Helper()
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	prev := SetGlobalRegistry(registry)
	t.Cleanup(func() { SetGlobalRegistry(prev) })
	return registry
}

// newTestServer starts an httptest server that is closed when the test ends
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}
