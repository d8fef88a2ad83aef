package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	appconfig "sentiment-analyst/config"
	"sentiment-analyst/models"
	"sentiment-analyst/observability"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openaiClient defines the interface for OpenAI API calls (for testing)
type openaiClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// openaiClientWrapper wraps the openai.Client to implement our interface
type openaiClientWrapper struct {
	client openai.Client
}

func (w *openaiClientWrapper) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return w.client.Chat.Completions.New(ctx, params)
}

// OpenAIService handles communication with OpenAI API
type OpenAIService struct {
	client    openaiClient
	model     string
	maxTokens int
}

// NewOpenAIService creates a new OpenAIService instance.
// The SDK's built-in retries are disabled; each completion is a single attempt.
func NewOpenAIService(cfg *appconfig.Config) (*OpenAIService, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAI.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.ClientTimeout()}),
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &OpenAIService{
		client:    &openaiClientWrapper{client: client},
		model:     cfg.OpenAI.Model,
		maxTokens: cfg.OpenAI.MaxTokens,
	}, nil
}

// newOpenAIServiceWithClient creates an OpenAIService with a custom client (for testing)
func newOpenAIServiceWithClient(client openaiClient, model string, maxTokens int) *OpenAIService {
	return &OpenAIService{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Name returns the provider name
func (s *OpenAIService) Name() string { return BreakerOpenAI }

// Complete sends a system and user prompt and returns the response text
func (s *OpenAIService) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return callExternal(ctx, BreakerOpenAI, "complete", func(ctx context.Context) (string, error) {
		params := openai.ChatCompletionNewParams{
			Model:       shared.ChatModel(s.model),
			MaxTokens:   openai.Int(int64(s.maxTokens)),
			Temperature: openai.Float(0),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userPrompt),
			},
		}

		completion, err := s.client.CreateChatCompletion(ctx, params)
		if err != nil {
			return "", openAIError(err)
		}

		// No text is a degraded answer for the parser, not a failed call
		if len(completion.Choices) == 0 {
			observability.WithProvider(BreakerOpenAI).Warn("completion returned no choices", "model", s.model)
			return "", nil
		}

		return completion.Choices[0].Message.Content, nil
	})
}

// openAIError converts an SDK error into an ExternalServiceError carrying the HTTP status
func openAIError(err error) error {
	extErr := &models.ExternalServiceError{Provider: BreakerOpenAI, Op: "complete", Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		extErr.StatusCode = apiErr.StatusCode
	}
	return extErr
}
