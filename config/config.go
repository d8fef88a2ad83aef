package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider identifiers accepted by the *_PROVIDER settings
const (
	ProviderOpenAI       = "openai"
	ProviderBedrock      = "bedrock"
	ProviderNewsAPI      = "newsapi"
	ProviderRSS          = "rss"
	ProviderFMP          = "fmp"
	ProviderAlphaVantage = "alphavantage"
)

// Bounds for per-request analysis parameters
const (
	MinLookbackDays = 1
	MaxLookbackDays = 30
	MinMaxArticles  = 5
	MaxMaxArticles  = 50
)

// Config holds all application configuration
type Config struct {
	// Provider selection
	Providers ProvidersConfig

	// LLM configuration
	OpenAI OpenAIConfig
	AWS    AWSConfig

	// News and market data configuration
	NewsAPI      NewsAPIConfig
	RSS          RSSConfig
	FMP          FMPConfig
	AlphaVantage AlphaVantageConfig

	// Analysis pipeline configuration
	Analysis AnalysisConfig

	// Per-service pacing
	RateLimit RateLimitConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Observability
	Logging LoggingConfig
	Tracing TracingConfig
}

// ProvidersConfig selects which implementation backs each external service
type ProvidersConfig struct {
	LLM        string
	News       string
	MarketData string
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string // optional, for proxies and tests
}

// AWSConfig holds AWS Bedrock configuration
type AWSConfig struct {
	Region           string
	BedrockModelID   string
	BedrockMaxTokens int
	AnthropicVersion string
}

// NewsAPIConfig holds NewsAPI configuration
type NewsAPIConfig struct {
	APIKey  string
	BaseURL string
}

// RSSConfig holds the RSS news feed configuration.
// FeedURL may contain %s, replaced by the ticker symbol.
type RSSConfig struct {
	FeedURL string
}

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	APIKey  string
	BaseURL string
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey  string
	BaseURL string
}

// AnalysisConfig holds pipeline defaults
type AnalysisConfig struct {
	LookbackDays          int // default news window in days (1-30)
	MaxArticles           int // default article cap (5-50)
	MaxBodyChars          int // characters of article body included in the prompt
	MaxCaseItems          int // cap on bull/bear case bullets
	ConcurrencyLimit      int // concurrent analyses accepted by the app
	TimeoutSeconds        int // timeout for a whole analysis request
	HealthCacheTTLSeconds int // TTL for provider health check caching
	EnrichProfile         bool
}

// RateLimitConfig holds minimum intervals between calls per service
type RateLimitConfig struct {
	NewsSeconds float64
	LLMSeconds  float64
}

// HTTPConfig holds HTTP server and client configuration
type HTTPConfig struct {
	Addr                 string
	CORSAllowedOrigins   string
	ClientTimeoutSeconds int
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string // text or json
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Providers: ProvidersConfig{
			LLM:        strings.ToLower(getEnvString("LLM_PROVIDER", ProviderOpenAI)),
			News:       strings.ToLower(getEnvString("NEWS_PROVIDER", ProviderNewsAPI)),
			MarketData: strings.ToLower(getEnvString("MARKET_DATA_PROVIDER", ProviderFMP)),
		},
		OpenAI: OpenAIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			Model:     getEnvString("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvInt("OPENAI_MAX_TOKENS", 1024),
			BaseURL:   os.Getenv("OPENAI_BASE_URL"),
		},
		AWS: AWSConfig{
			Region:           os.Getenv("AWS_REGION"),
			BedrockModelID:   os.Getenv("BEDROCK_MODEL_ID"),
			BedrockMaxTokens: getEnvInt("BEDROCK_MAX_TOKENS", 1024),
			AnthropicVersion: getEnvString("BEDROCK_ANTHROPIC_VERSION", "bedrock-2023-05-31"),
		},
		NewsAPI: NewsAPIConfig{
			APIKey:  os.Getenv("NEWS_API_KEY"),
			BaseURL: getEnvString("NEWS_API_BASE_URL", "https://newsapi.org/v2"),
		},
		RSS: RSSConfig{
			FeedURL: getEnvString("RSS_FEED_URL", "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"),
		},
		FMP: FMPConfig{
			APIKey:  os.Getenv("FMP_API_KEY"),
			BaseURL: getEnvString("FMP_BASE_URL", "https://financialmodelingprep.com/api/v3"),
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey:  os.Getenv("ALPHA_VANTAGE_API_KEY"),
			BaseURL: getEnvString("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
		},
		Analysis: AnalysisConfig{
			LookbackDays:          getEnvIntRange("ANALYSIS_LOOKBACK_DAYS", 7, MinLookbackDays, MaxLookbackDays),
			MaxArticles:           getEnvIntRange("ANALYSIS_MAX_ARTICLES", 20, MinMaxArticles, MaxMaxArticles),
			MaxBodyChars:          getEnvInt("SENTIMENT_MAX_BODY_CHARS", 500),
			MaxCaseItems:          getEnvInt("SENTIMENT_MAX_CASE_ITEMS", 5),
			ConcurrencyLimit:      getEnvInt("ANALYSIS_CONCURRENCY_LIMIT", 3),
			TimeoutSeconds:        getEnvInt("ANALYSIS_TIMEOUT_SECONDS", 120),
			HealthCacheTTLSeconds: getEnvInt("HEALTH_CACHE_TTL_SECONDS", 30),
			EnrichProfile:         getEnvBool("ANALYSIS_ENRICH_PROFILE", true),
		},
		RateLimit: RateLimitConfig{
			NewsSeconds: getEnvFloatUnbounded("RATE_LIMIT_NEWS_SECONDS", 1),
			LLMSeconds:  getEnvFloatUnbounded("RATE_LIMIT_LLM_SECONDS", 4),
		},
		HTTP: HTTPConfig{
			Addr:                 getEnvString("HTTP_ADDR", ":8080"),
			CORSAllowedOrigins:   getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			ClientTimeoutSeconds: getEnvInt("HTTP_TIMEOUT_SECONDS", 30),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnvString("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnvString("LOG_FORMAT", "text")),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			ServiceName: getEnvString("TRACING_SERVICE_NAME", "sentiment-analyst"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Providers.LLM {
	case ProviderOpenAI, ProviderBedrock:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderBedrock, c.Providers.LLM)
	}
	switch c.Providers.News {
	case ProviderNewsAPI, ProviderRSS:
	default:
		return fmt.Errorf("NEWS_PROVIDER must be %q or %q, got %q", ProviderNewsAPI, ProviderRSS, c.Providers.News)
	}
	switch c.Providers.MarketData {
	case ProviderFMP, ProviderAlphaVantage:
	default:
		return fmt.Errorf("MARKET_DATA_PROVIDER must be %q or %q, got %q", ProviderFMP, ProviderAlphaVantage, c.Providers.MarketData)
	}

	if err := ValidateWindow(c.Analysis.LookbackDays, c.Analysis.MaxArticles); err != nil {
		return err
	}

	// Validate positive integers
	if c.Analysis.MaxBodyChars <= 0 {
		return fmt.Errorf("SENTIMENT_MAX_BODY_CHARS must be positive, got %d", c.Analysis.MaxBodyChars)
	}
	if c.Analysis.ConcurrencyLimit <= 0 {
		return fmt.Errorf("ANALYSIS_CONCURRENCY_LIMIT must be positive, got %d", c.Analysis.ConcurrencyLimit)
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT_SECONDS must be positive, got %d", c.Analysis.TimeoutSeconds)
	}

	if c.RateLimit.NewsSeconds < 0 {
		return fmt.Errorf("RATE_LIMIT_NEWS_SECONDS must not be negative, got %.2f", c.RateLimit.NewsSeconds)
	}
	if c.RateLimit.LLMSeconds < 0 {
		return fmt.Errorf("RATE_LIMIT_LLM_SECONDS must not be negative, got %.2f", c.RateLimit.LLMSeconds)
	}

	return nil
}

// ValidateWindow checks per-request lookback and article limits
func ValidateWindow(lookbackDays, maxArticles int) error {
	if lookbackDays < MinLookbackDays || lookbackDays > MaxLookbackDays {
		return fmt.Errorf("lookback days must be between %d and %d, got %d", MinLookbackDays, MaxLookbackDays, lookbackDays)
	}
	if maxArticles < MinMaxArticles || maxArticles > MaxMaxArticles {
		return fmt.Errorf("max articles must be between %d and %d, got %d", MinMaxArticles, MaxMaxArticles, maxArticles)
	}
	return nil
}

// MissingCredentials lists the environment variables the selected providers
// need but which are not set. The RSS provider needs none.
func (c *Config) MissingCredentials() []string {
	var missing []string

	switch c.Providers.LLM {
	case ProviderOpenAI:
		if !c.HasOpenAI() {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case ProviderBedrock:
		if c.AWS.Region == "" {
			missing = append(missing, "AWS_REGION")
		}
		if c.AWS.BedrockModelID == "" {
			missing = append(missing, "BEDROCK_MODEL_ID")
		}
	}

	if c.Providers.News == ProviderNewsAPI && !c.HasNewsAPI() {
		missing = append(missing, "NEWS_API_KEY")
	}

	switch c.Providers.MarketData {
	case ProviderFMP:
		if !c.HasFMP() {
			missing = append(missing, "FMP_API_KEY")
		}
	case ProviderAlphaVantage:
		if !c.HasAlphaVantage() {
			missing = append(missing, "ALPHA_VANTAGE_API_KEY")
		}
	}

	return missing
}

// HasOpenAI returns true if OpenAI configuration is available
func (c *Config) HasOpenAI() bool {
	return c.OpenAI.APIKey != ""
}

// HasNewsAPI returns true if NewsAPI configuration is available
func (c *Config) HasNewsAPI() bool {
	return c.NewsAPI.APIKey != ""
}

// HasFMP returns true if Financial Modeling Prep configuration is available
func (c *Config) HasFMP() bool {
	return c.FMP.APIKey != ""
}

// HasAlphaVantage returns true if Alpha Vantage configuration is available
func (c *Config) HasAlphaVantage() bool {
	return c.AlphaVantage.APIKey != ""
}

// NewsInterval returns the minimum spacing between news requests
func (c *Config) NewsInterval() time.Duration {
	return secondsToDuration(c.RateLimit.NewsSeconds)
}

// LLMInterval returns the minimum spacing between LLM requests
func (c *Config) LLMInterval() time.Duration {
	return secondsToDuration(c.RateLimit.LLMSeconds)
}

// ClientTimeout returns the timeout applied to outbound HTTP clients
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.HTTP.ClientTimeoutSeconds) * time.Second
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvIntRange(key string, defaultValue, minVal, maxVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= minVal && parsed <= maxVal {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatUnbounded(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			LLM:        ProviderOpenAI,
			News:       ProviderNewsAPI,
			MarketData: ProviderFMP,
		},
		OpenAI: OpenAIConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 1024,
		},
		AWS: AWSConfig{
			BedrockMaxTokens: 1024,
			AnthropicVersion: "bedrock-2023-05-31",
		},
		NewsAPI: NewsAPIConfig{
			BaseURL: "https://newsapi.org/v2",
		},
		RSS: RSSConfig{
			FeedURL: "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US",
		},
		FMP: FMPConfig{
			BaseURL: "https://financialmodelingprep.com/api/v3",
		},
		AlphaVantage: AlphaVantageConfig{
			BaseURL: "https://www.alphavantage.co/query",
		},
		Analysis: AnalysisConfig{
			LookbackDays:          7,
			MaxArticles:           20,
			MaxBodyChars:          500,
			MaxCaseItems:          5,
			ConcurrencyLimit:      3,
			TimeoutSeconds:        120,
			HealthCacheTTLSeconds: 30,
			EnrichProfile:         false,
		},
		RateLimit: RateLimitConfig{
			NewsSeconds: 0,
			LLMSeconds:  0,
		},
		HTTP: HTTPConfig{
			Addr:                 ":8080",
			CORSAllowedOrigins:   "*",
			ClientTimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			ServiceName: "sentiment-analyst",
		},
	}
}
