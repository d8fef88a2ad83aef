package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	appconfig "sentiment-analyst/config"
	"sentiment-analyst/models"
	"sentiment-analyst/observability"
)

// bedrockClient defines the Bedrock runtime calls used here (for testing)
type bedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockService handles communication with AWS Bedrock for Claude models
type BedrockService struct {
	client           bedrockClient
	model            string
	maxTokens        int
	anthropicVersion string
}

// ClaudeRequest represents the request format for Claude models via Bedrock
type ClaudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	System           string          `json:"system,omitempty"`
	Messages         []ClaudeMessage `json:"messages"`
}

// ClaudeMessage represents a message in the Claude conversation
type ClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeResponse represents the response from Claude models
type ClaudeResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewBedrockService creates a new BedrockService instance.
// The SDK retryer is limited to a single attempt.
func NewBedrockService(ctx context.Context, cfg *appconfig.Config) (*BedrockService, error) {
	if cfg.AWS.Region == "" || cfg.AWS.BedrockModelID == "" {
		return nil, fmt.Errorf("AWS_REGION and BEDROCK_MODEL_ID are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), 1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return newBedrockServiceWithClient(
		bedrockruntime.NewFromConfig(awsCfg),
		cfg.AWS.BedrockModelID,
		cfg.AWS.BedrockMaxTokens,
		cfg.AWS.AnthropicVersion,
	), nil
}

// newBedrockServiceWithClient creates a BedrockService with a custom client (for testing)
func newBedrockServiceWithClient(client bedrockClient, model string, maxTokens int, anthropicVersion string) *BedrockService {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if anthropicVersion == "" {
		anthropicVersion = "bedrock-2023-05-31"
	}
	return &BedrockService{
		client:           client,
		model:            model,
		maxTokens:        maxTokens,
		anthropicVersion: anthropicVersion,
	}
}

// Name returns the provider name
func (s *BedrockService) Name() string { return BreakerBedrock }

// Complete sends a prompt to Claude and returns the response text
func (s *BedrockService) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	request := ClaudeRequest{
		AnthropicVersion: s.anthropicVersion,
		MaxTokens:        s.maxTokens,
		System:           systemPrompt,
		Messages: []ClaudeMessage{
			{Role: "user", Content: userPrompt},
		},
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	return callExternal(ctx, BreakerBedrock, "complete", func(ctx context.Context) (string, error) {
		output, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(s.model),
			Body:        reqBody,
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
		})
		if err != nil {
			return "", bedrockError(err)
		}

		var response ClaudeResponse
		if err := json.Unmarshal(output.Body, &response); err != nil {
			return "", &models.ExternalServiceError{Provider: BreakerBedrock, Op: "complete", Err: fmt.Errorf("failed to unmarshal response: %w", err)}
		}

		for _, block := range response.Content {
			if block.Type == "" || block.Type == "text" {
				return block.Text, nil
			}
		}
		// No text is a degraded answer for the parser, not a failed call
		observability.WithProvider(BreakerBedrock).Warn("model returned no text content", "model", s.model)
		return "", nil
	})
}

// bedrockError converts an SDK error into an ExternalServiceError carrying the HTTP status
func bedrockError(err error) error {
	extErr := &models.ExternalServiceError{Provider: BreakerBedrock, Op: "complete", Err: err}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		extErr.StatusCode = respErr.HTTPStatusCode()
	}
	return extErr
}
