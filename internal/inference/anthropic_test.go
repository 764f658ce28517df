// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/pkg/types"
)

type fakeMessager struct {
	response *anthropic.Message
	err      error
	params   anthropic.MessageNewParams
}

func (f *fakeMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = params
	return f.response, f.err
}

func withFakeMessager(t *testing.T, f *fakeMessager) {
	t.Helper()
	old := newMessager
	newMessager = func(_, _ string) Messager { return f }
	t.Cleanup(func() { newMessager = old })
}

func textMessage(parts ...string) *anthropic.Message {
	msg := &anthropic.Message{}
	for _, p := range parts {
		msg.Content = append(msg.Content, anthropic.ContentBlockUnion{Type: "text", Text: p})
	}
	return msg
}

func TestNewAnthropicBackendRequiresKey(t *testing.T) {
	_, err := NewAnthropicBackend(types.InferenceConfig{Model: "m"})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = NewAnthropicBackend(types.InferenceConfig{APIKey: "k"})
	assert.ErrorIs(t, err, types.ErrNoModel)
}

func TestAnthropicCompleteSendsParams(t *testing.T) {
	f := &fakeMessager{response: textMessage("[YES] ", "deepmind\n")}
	withFakeMessager(t, f)

	b, err := NewAnthropicBackend(types.InferenceConfig{APIKey: "k", Model: "claude-test", Temperature: 0.3})
	require.NoError(t, err)

	got, err := b.Complete(context.Background(), Request{System: "judge", User: "paper", MaxTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, "[YES] deepmind", got)

	assert.Equal(t, anthropic.Model("claude-test"), f.params.Model)
	assert.Equal(t, int64(300), f.params.MaxTokens)
	require.Len(t, f.params.System, 1)
	assert.Equal(t, "judge", f.params.System[0].Text)
	assert.InDelta(t, 0.3, f.params.Temperature.Value, 1e-9)
}

func TestAnthropicCompleteEmpty(t *testing.T) {
	withFakeMessager(t, &fakeMessager{response: textMessage()})
	b, err := NewAnthropicBackend(types.InferenceConfig{APIKey: "k", Model: "m"})
	require.NoError(t, err)

	_, err = b.Complete(context.Background(), Request{User: "x", MaxTokens: 5})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAnthropicCompleteError(t *testing.T) {
	withFakeMessager(t, &fakeMessager{err: errors.New("overloaded")})
	b, err := NewAnthropicBackend(types.InferenceConfig{APIKey: "k", Model: "m"})
	require.NoError(t, err)

	_, err = b.Complete(context.Background(), Request{User: "x", MaxTokens: 5})
	assert.EqualError(t, err, "overloaded")
}
