package generative

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
// It makes exactly one request per call.
type OpenAIClient struct {
	client *openai.Client
	cfg    Config
}

// NewOpenAIClient builds a client from cfg, filling unset fields with the
// package defaults.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	cfg = cfg.withDefaults()

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.cfg.Model
}

func (c *OpenAIClient) Generate(ctx context.Context, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    BuildMessages(message),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrUnavailable)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
