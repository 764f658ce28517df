// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inference wraps the external reasoning service behind a bounded
// retry loop. Callers never see an error: a call that exhausts its attempts
// yields Sentinel.
package inference

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Sentinel is returned when every attempt failed. Stages read it as
// insufficient evidence: rejection, no confirmation, no score.
const Sentinel = "NO"

// Request is one call to the service.
type Request struct {
	System    string
	User      string
	MaxTokens int
}

// Backend performs a single attempt. Implementations must honor ctx.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Stats counts client activity across all stages.
type Stats struct {
	Calls    int64 `json:"calls" yaml:"calls"`
	Attempts int64 `json:"attempts" yaml:"attempts"`
	Retries  int64 `json:"retries" yaml:"retries"`
	Failures int64 `json:"failures" yaml:"failures"`
}

// Client retries a Backend a fixed number of times with a fixed pause.
// It is safe for concurrent use.
type Client struct {
	backend     Backend
	maxAttempts int
	timeout     time.Duration
	backoff     time.Duration
	logger      *slog.Logger

	calls    atomic.Int64
	attempts atomic.Int64
	retries  atomic.Int64
	failures atomic.Int64
}

// NewClient builds a Client from the inference settings. A zero attempt
// count becomes 3 and a zero timeout becomes 20s. Backoff is used as given.
func NewClient(backend Backend, cfg types.InferenceConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Client{
		backend:     backend,
		maxAttempts: cfg.MaxAttempts,
		timeout:     cfg.Timeout,
		backoff:     cfg.Backoff,
		logger:      logger,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 3
	}
	if c.timeout <= 0 {
		c.timeout = 20 * time.Second
	}
	return c
}

// Classify sends one request and returns the response text, or Sentinel
// after the last failed attempt.
func (c *Client) Classify(ctx context.Context, system, user string, maxTokens int) string {
	c.calls.Add(1)
	req := Request{System: system, User: user, MaxTokens: maxTokens}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.retries.Add(1)
			select {
			case <-ctx.Done():
				return c.fail(ctx.Err())
			case <-time.After(c.backoff):
			}
		}

		c.attempts.Add(1)
		text, err := c.attempt(ctx, req)
		if err == nil {
			return text
		}
		lastErr = err
		c.logger.Debug("inference attempt failed",
			"attempt", attempt, "max", c.maxAttempts, "class", classify(err), "err", err)
	}

	return c.fail(lastErr)
}

func (c *Client) fail(err error) string {
	c.failures.Add(1)
	c.logger.Warn("inference exhausted retries", "attempts", c.maxAttempts, "err", err)
	return Sentinel
}

func (c *Client) attempt(ctx context.Context, req Request) (string, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.backend.Complete(actx, req)
}

// Stats returns a snapshot of the counters.
func (c *Client) Stats() Stats {
	return Stats{
		Calls:    c.calls.Load(),
		Attempts: c.attempts.Load(),
		Retries:  c.retries.Load(),
		Failures: c.failures.Load(),
	}
}

// classify labels an attempt error for logs.
func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	default:
		return "service"
	}
}
