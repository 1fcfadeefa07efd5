package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient calls the OpenAI chat-completions API.
// Implements the Summarizer interface.
type OpenAIClient struct {
	client     *openai.Client
	model      string
	maxRetries int
}

// Option configures an OpenAIClient.
type Option func(*openai.ClientConfig)

// WithBaseURL points the client at an alternate OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(cfg *openai.ClientConfig) { cfg.BaseURL = url }
}

// NewOpenAIClient creates a chat-completion summarizer. maxRetries bounds
// additional attempts on rate-limit and server errors; 0 disables retry.
func NewOpenAIClient(apiKey, model string, maxRetries int, opts ...Option) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &OpenAIClient{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		maxRetries: maxRetries,
	}
}

// Summarize sends the transcript as the user message under the fixed system
// instruction and returns the completion text.
func (c *OpenAIClient) Summarize(ctx context.Context, text, instruction string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty transcript")
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}

	var summary string
	op := func() error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("completion returned no choices"))
		}
		summary = resp.Choices[0].Message.Content
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	return summary, nil
}

// retryable reports whether a completion error is worth another attempt:
// rate limits and server errors are, auth and invalid-request errors are not.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	// Transport-level failures (connection reset, timeout) have no status.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
