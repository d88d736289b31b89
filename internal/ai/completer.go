// Package ai evaluates tokens and the market with an OpenAI chat model.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"solana-token-trader/internal/breaker"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/retry"
)

// ProviderOpenAI is the provider name used for metrics and the circuit breaker.
const ProviderOpenAI = "openai"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// ErrNoJSON is returned when a completion contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in completion")

// ChatClient is the subset of *openai.Client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient creates an OpenAI client. An empty baseURL keeps the library default.
func NewOpenAIClient(apiKey, baseURL string, httpClient *http.Client) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(cfg)
}

// Completer sends JSON-only prompts and decodes the reply.
type Completer struct {
	client   ChatClient
	model    string
	policy   retry.Policy
	breakers *breaker.Manager
	logger   zerolog.Logger
}

// NewCompleter creates a Completer. breakers may be nil.
func NewCompleter(client ChatClient, model string, policy retry.Policy, breakers *breaker.Manager, logger zerolog.Logger) *Completer {
	if model == "" {
		model = DefaultModel
	}
	return &Completer{
		client:   client,
		model:    model,
		policy:   policy,
		breakers: breakers,
		logger:   logger,
	}
}

// CompleteJSON asks the model for a JSON object and decodes it into out.
func (c *Completer) CompleteJSON(ctx context.Context, op, system, prompt string, temperature float32, out interface{}) error {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	start := time.Now()
	content, err := retry.DoValue(ctx, c.policy, func() (string, error) {
		return c.once(ctx, req)
	}, func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Str("op", op).Dur("wait", wait).Msg("retrying completion")
	})
	observability.RecordProviderCall(ProviderOpenAI, op, time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("openai %s: %w", op, err)
	}

	raw, err := ExtractJSON(content)
	if err != nil {
		return fmt.Errorf("openai %s: %w", op, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("openai %s: decode completion: %w", op, err)
	}
	return nil
}

func (c *Completer) once(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	var content string
	call := func() error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty completion")
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	var err error
	if c.breakers != nil {
		err = c.breakers.Execute(ProviderOpenAI, call)
	} else {
		err = call()
	}
	if err != nil && (errors.Is(err, breaker.ErrOpen) || !retryable(err)) {
		return "", retry.Permanent(err)
	}
	return content, err
}

// retryable treats rate limits, server errors and transport failures as transient.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled)
}

// ExtractJSON returns the text between the first '{' and the last '}'.
func ExtractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}
