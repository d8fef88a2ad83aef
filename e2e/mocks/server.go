// Package mocks provides an HTTP mock server for the external APIs used in E2E tests.
package mocks

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Endpoint identifies which external API a request was aimed at.
type Endpoint string

const (
	EndpointNews    Endpoint = "news"
	EndpointSearch  Endpoint = "search"
	EndpointProfile Endpoint = "profile"
	EndpointChat    Endpoint = "chat"
)

// MockServer provides configurable mock responses for NewsAPI, FMP and an
// OpenAI-compatible chat completion endpoint.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	// Response configurations
	symbols      map[string][]FMPSearchResult // key: uppercased search query
	profiles     map[string]FMPProfile        // key: symbol
	newsArticles []NewsArticle
	chatContent  string

	// Error injection (HTTP status to return, 0 for none)
	newsStatus   int
	searchStatus int
	chatStatus   int

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Endpoint Endpoint
	Method   string
	Path     string
	Query    string
	Body     string
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{
		symbols:    make(map[string][]FMPSearchResult),
		profiles:   make(map[string]FMPProfile),
		requestLog: make([]RequestLog, 0),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP implements http.Handler to route requests to appropriate mock handlers.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	var endpoint Endpoint
	switch {
	case strings.HasSuffix(path, "/everything"):
		endpoint = EndpointNews
	case strings.HasSuffix(path, "/search"):
		endpoint = EndpointSearch
	case strings.Contains(path, "/profile/"):
		endpoint = EndpointProfile
	case strings.HasSuffix(path, "/chat/completions"):
		endpoint = EndpointChat
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	body, _ := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Endpoint: endpoint,
		Method:   r.Method,
		Path:     path,
		Query:    r.URL.RawQuery,
		Body:     string(body),
	})
	m.mu.Unlock()

	switch endpoint {
	case EndpointNews:
		m.handleNewsAPI(w, r)
	case EndpointSearch:
		m.handleSearch(w, r)
	case EndpointProfile:
		m.handleProfile(w, r)
	case EndpointChat:
		m.handleChat(w, body)
	}
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// Calls returns how many requests reached the given endpoint.
func (m *MockServer) Calls(endpoint Endpoint) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, req := range m.requestLog {
		if req.Endpoint == endpoint {
			n++
		}
	}
	return n
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetSymbols configures the search results returned for a query.
func (m *MockServer) SetSymbols(query string, results []FMPSearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols[symbolKey(query)] = results
}

// SetProfile configures the profile returned for a symbol.
func (m *MockServer) SetProfile(p FMPProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Symbol] = p
}

// SetNewsArticles configures the news articles response.
func (m *MockServer) SetNewsArticles(articles []NewsArticle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newsArticles = articles
}

// SetSentiment configures the chat completion to answer with resp as JSON.
func (m *MockServer) SetSentiment(resp SentimentResponse) {
	content, _ := json.Marshal(resp)
	m.SetChatContent("```json\n" + string(content) + "\n```")
}

// SetChatContent configures the raw text of the chat completion.
func (m *MockServer) SetChatContent(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatContent = content
}

// SetNewsAPIStatus makes NewsAPI fail with the given HTTP status.
func (m *MockServer) SetNewsAPIStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newsStatus = status
}

// SetSearchStatus makes the symbol search fail with the given HTTP status.
func (m *MockServer) SetSearchStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchStatus = status
}

// SetChatStatus makes the chat completion fail with the given HTTP status.
func (m *MockServer) SetChatStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatStatus = status
}

func (m *MockServer) setDefaults() {
	acme := FMPSearchResult{Symbol: "ACME", Name: "Acme Corporation", Currency: "USD", ExchangeShortName: "NASDAQ"}
	m.symbols["ACME CORP"] = []FMPSearchResult{
		acme,
		{Symbol: "ACMEW", Name: "Acme Corporation Warrants", Currency: "USD", ExchangeShortName: "NASDAQ"},
	}
	m.symbols["ACME"] = []FMPSearchResult{acme}

	m.profiles["ACME"] = FMPProfile{
		Symbol:            "ACME",
		CompanyName:       "Acme Corporation",
		Price:             42.5,
		MktCap:            1500000000,
		Currency:          "USD",
		ExchangeShortName: "NASDAQ",
		Industry:          "Machinery",
		Sector:            "Industrials",
		Country:           "US",
		IsActivelyTrading: true,
	}

	m.newsArticles = GenerateNewsArticles(time.Now().UTC(), "Acme Corporation", 3)

	content, _ := json.Marshal(SentimentResponse{
		OverallSentiment: "Positive",
		PositiveCount:    2,
		NegativeCount:    0,
		NeutralCount:     1,
		Confidence:       0.8,
		BullCase:         []string{"Record quarterly revenue", "New product line"},
		BearCase:         []string{"Rising input costs"},
	})
	m.chatContent = string(content)
}

func (m *MockServer) handleNewsAPI(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	status := m.newsStatus
	articles := m.newsArticles
	m.mu.RUnlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"status": "error", "code": "mockError", "message": "injected failure"})
		return
	}
	if r.Header.Get("X-Api-Key") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "code": "apiKeyMissing"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"totalResults": len(articles),
		"articles":     articles,
	})
}

func (m *MockServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := symbolKey(r.URL.Query().Get("query"))

	m.mu.RLock()
	status := m.searchStatus
	results, ok := m.symbols[query]
	m.mu.RUnlock()

	if status != 0 {
		http.Error(w, "injected failure", status)
		return
	}
	if !ok {
		results = []FMPSearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (m *MockServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	m.mu.RLock()
	profile, ok := m.profiles[symbol]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusOK, []FMPProfile{})
		return
	}
	writeJSON(w, http.StatusOK, []FMPProfile{profile})
}

func (m *MockServer) handleChat(w http.ResponseWriter, body []byte) {
	m.mu.RLock()
	status := m.chatStatus
	content := m.chatContent
	m.mu.RUnlock()

	if status != 0 {
		writeJSON(w, status, map[string]interface{}{
			"error": map[string]string{"message": "injected failure", "type": "server_error"},
		})
		return
	}

	var req struct {
		Model string `json:"model"`
	}
	_ = json.Unmarshal(body, &req)

	writeJSON(w, http.StatusOK, chatCompletion{
		ID:      "chatcmpl-mock",
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Index:        0,
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
	})
}

// symbolKey uppercases a query and collapses its whitespace
func symbolKey(query string) string {
	return strings.ToUpper(strings.Join(strings.Fields(query), " "))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// GenerateNewsArticles returns count articles about company published in
// the hours before now.
func GenerateNewsArticles(now time.Time, company string, count int) []NewsArticle {
	titles := []string{
		"%s Reports Strong Quarterly Earnings",
		"New Product Launch Expected to Boost %s Sales",
		"Analysts Hold Steady on %s",
		"%s Expands Into New Markets",
		"%s Faces Rising Input Costs",
	}
	articles := make([]NewsArticle, count)
	for i := 0; i < count; i++ {
		articles[i] = NewsArticle{
			Source:      map[string]string{"name": "Financial Times"},
			Author:      "Test Author",
			Title:       fmt.Sprintf(titles[i%len(titles)], company),
			Description: fmt.Sprintf("Coverage of %s for E2E testing.", company),
			URL:         fmt.Sprintf("https://example.com/article/%d", i),
			PublishedAt: now.Add(-time.Duration(i+1) * time.Hour).Format(time.RFC3339),
		}
	}
	return articles
}
