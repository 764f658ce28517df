// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// scriptedBackend fails the first failures calls, then answers text.
type scriptedBackend struct {
	mu       sync.Mutex
	failures int
	text     string
	calls    int
	last     Request
	block    bool
}

func (s *scriptedBackend) Complete(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.calls++
	s.last = req
	n := s.calls
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if n <= s.failures {
		return "", errors.New("service unavailable")
	}
	return s.text, nil
}

func testConfig() types.InferenceConfig {
	return types.InferenceConfig{
		Model:       "test-model",
		MaxAttempts: 3,
		Timeout:     time.Second,
		Backoff:     time.Millisecond,
	}
}

func TestClassifySuccess(t *testing.T) {
	b := &scriptedBackend{text: "YES"}
	c := NewClient(b, testConfig(), nil)

	got := c.Classify(context.Background(), "sys", "user", 5)
	assert.Equal(t, "YES", got)
	assert.Equal(t, Request{System: "sys", User: "user", MaxTokens: 5}, b.last)
	assert.Equal(t, Stats{Calls: 1, Attempts: 1}, c.Stats())
}

func TestClassifyRetriesThenSucceeds(t *testing.T) {
	b := &scriptedBackend{failures: 2, text: "[YES] mit"}
	c := NewClient(b, testConfig(), nil)

	got := c.Classify(context.Background(), "sys", "user", 300)
	assert.Equal(t, "[YES] mit", got)
	assert.Equal(t, 3, b.calls)
	assert.Equal(t, Stats{Calls: 1, Attempts: 3, Retries: 2}, c.Stats())
}

func TestClassifyExhaustedReturnsSentinel(t *testing.T) {
	b := &scriptedBackend{failures: 10, text: "YES"}
	c := NewClient(b, testConfig(), nil)

	got := c.Classify(context.Background(), "sys", "user", 5)
	assert.Equal(t, Sentinel, got)
	assert.Equal(t, 3, b.calls)
	assert.Equal(t, int64(1), c.Stats().Failures)
}

func TestClassifyAttemptTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 5 * time.Millisecond
	b := &scriptedBackend{block: true}
	c := NewClient(b, cfg, nil)

	start := time.Now()
	got := c.Classify(context.Background(), "sys", "user", 5)
	assert.Equal(t, Sentinel, got)
	assert.Equal(t, 3, b.calls)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClassifyCancelledDuringBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.Backoff = time.Hour
	b := &scriptedBackend{failures: 10}
	c := NewClient(b, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Equal(t, Sentinel, c.Classify(ctx, "sys", "user", 5))
	assert.Equal(t, 1, b.calls)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(&scriptedBackend{}, types.InferenceConfig{}, nil)
	require.NotNil(t, c)
	assert.Equal(t, 3, c.maxAttempts)
	assert.Equal(t, 20*time.Second, c.timeout)
}

func TestClassifyConcurrent(t *testing.T) {
	b := &scriptedBackend{text: "YES"}
	c := NewClient(b, testConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Classify(context.Background(), "sys", "user", 5)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Stats().Calls)
}

func TestClassifyLabels(t *testing.T) {
	assert.Equal(t, "timeout", classify(context.DeadlineExceeded))
	assert.Equal(t, "canceled", classify(context.Canceled))
	assert.Equal(t, "empty", classify(ErrEmptyResponse))
	assert.Equal(t, "service", classify(errors.New("boom")))
}
