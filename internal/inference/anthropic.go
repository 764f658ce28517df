// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// ErrEmptyResponse is returned when the service answers with no text.
var ErrEmptyResponse = errors.New("empty response from inference service")

// ErrNoAPIKey is returned when the backend is built without credentials.
var ErrNoAPIKey = errors.New("anthropic API key not configured")

// Messager is the slice of the SDK client the backend uses. Tests substitute
// a fake.
type Messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// newMessager builds the SDK client. Declared as a var so tests can avoid
// constructing a real client.
var newMessager = func(apiKey, baseURL string) Messager {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := anthropic.NewClient(opts...)
	return &c.Messages
}

// AnthropicBackend sends each request as a single-turn message.
type AnthropicBackend struct {
	messages    Messager
	model       string
	temperature float64
}

// NewAnthropicBackend builds a backend from the inference settings. Retries
// belong to Client, so the SDK's own retry loop is disabled.
func NewAnthropicBackend(cfg types.InferenceConfig) (*AnthropicBackend, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		return nil, types.ErrNoModel
	}
	return &AnthropicBackend{
		messages:    newMessager(key, cfg.BaseURL),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Model returns the configured model identifier.
func (a *AnthropicBackend) Model() string { return a.model }

// Complete implements Backend.
func (a *AnthropicBackend) Complete(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.User))},
		Temperature: anthropic.Float(a.temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := a.messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
