package generativeAI

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

// Client is the minimal text-generation surface the message pipeline needs.
// Callers pass per-action generation knobs; failures are plain errors so the
// pipeline can apply its containment policy.
type Client interface {
	GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error)
}

var _ Client = (*AIClient)(nil)

type AIClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewAIClient(ctx context.Context, model string, timeout time.Duration) (*AIClient, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "NewAIClient")
	defer span.End()

	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		err := fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable is not set")
		span.RecordError(err)
		span.SetStatus(codes.Error, "API key not set")
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, err
	}

	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AIClient{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// GenerateContent sends a single prompt and returns the reply text. The call
// is bounded by the configured timeout; expiry surfaces as a regular error.
func (ai *AIClient) GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GenerateContent")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, ai.timeout)
	defer cancel()

	result, err := ai.client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation failed")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return result.Text(), nil
}
