// Package rpc provides the resilient request loop for the annotation service.
//
// A Client composes three pieces around a single logical request:
//
//   - budget.Gate: every attempt, first or retry, waits for a dispatch slot
//   - provider.Transport: sends the request and returns status, headers, body
//   - routing.Policy: decides whether to succeed, retry after a delay, or fail
//
// # Quick Start
//
//	gate := budget.NewGate(15)
//	policy := routing.NewPolicy(routing.DefaultRetryConfig)
//	client := rpc.NewClient(provider.NewHTTPProvider("ensembl", url, 30*time.Second), gate, policy)
//
//	resp, err := client.Fetch(ctx, provider.Request{Name: "gene", Path: "/overlap/region/human/7:1-2"})
//	if errors.Is(err, routing.ErrNotFound) {
//	    // valid empty answer
//	}
package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/vietddude/varannot/internal/annotation/metrics"
	"github.com/vietddude/varannot/internal/infra/rpc/budget"
	"github.com/vietddude/varannot/internal/infra/rpc/provider"
	"github.com/vietddude/varannot/internal/infra/rpc/routing"
)

// RetryCallback is invoked before each retry sleep.
type RetryCallback func(req provider.Request, retry int, d routing.Decision)

// Client is the high-level interface for making annotation service calls.
// A single Client is safe for concurrent use.
type Client struct {
	transport provider.Transport
	gate      *budget.Gate
	policy    *routing.Policy
	usage     *budget.UsageTracker
	logger    *slog.Logger

	onRetry RetryCallback
}

// NewClient creates a new client. gate must be shared by every client that
// talks to the same service.
func NewClient(transport provider.Transport, gate *budget.Gate, policy *routing.Policy) *Client {
	return &Client{
		transport: transport,
		gate:      gate,
		policy:    policy,
		usage:     budget.NewUsageTracker(),
		logger:    slog.Default().With("component", "rpc"),
	}
}

// SetRetryCallback sets a callback invoked before every retry.
func (c *Client) SetRetryCallback(fn RetryCallback) {
	c.onRetry = fn
}

// Usage returns per-kind call counts.
func (c *Client) Usage() *budget.UsageTracker {
	return c.usage
}

// Fetch performs req until a terminal decision. On success it returns the 2xx
// response. Failures wrap one of the routing sentinel errors, or the context
// error if ctx ended while waiting.
func (c *Client) Fetch(ctx context.Context, req provider.Request) (*provider.Response, error) {
	var (
		attempts   routing.Attempts
		lastStatus int
	)

	for {
		waitStart := time.Now()
		if err := c.gate.Acquire(ctx); err != nil {
			return nil, err
		}
		metrics.GateWait.Observe(time.Since(waitStart).Seconds())
		c.usage.RecordCall(req.Name)

		resp, err := c.transport.Do(ctx, req)

		var d routing.Decision
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.HTTPRequestsTotal.WithLabelValues(req.Name, "error").Inc()
			attempts.Transient++
			d = c.policy.ClassifyTransportError(err, attempts)
		} else {
			lastStatus = resp.StatusCode
			metrics.HTTPRequestsTotal.WithLabelValues(req.Name, strconv.Itoa(resp.StatusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(req.Name).Observe(resp.Latency.Seconds())

			switch {
			case resp.StatusCode == 429:
				attempts.RateLimited++
				metrics.RateLimitedTotal.WithLabelValues(req.Name).Inc()
			case resp.StatusCode >= 500:
				attempts.Transient++
			}
			d = c.policy.Classify(resp.StatusCode, resp.Header, attempts)
		}

		switch d.Action {
		case routing.ActionSucceed:
			return resp, nil

		case routing.ActionFail:
			if lastStatus != 0 && resp != nil {
				c.logger.Debug("Request failed",
					"kind", req.Name,
					"path", req.Path,
					"status", lastStatus,
					"body", Truncate(string(resp.Body), 200),
				)
			}
			return nil, fmt.Errorf("%s %s: %w", req.Name, req.Path, d.Err)
		}

		// ActionRetry
		retry := attempts.Transient
		reason := "transient"
		if d.RateLimited {
			retry = attempts.RateLimited
			reason = "rate_limited"
			c.gate.Penalize(d.Delay)
		}
		metrics.RetriesTotal.WithLabelValues(req.Name, reason).Inc()

		c.logger.Warn("Retrying request",
			"kind", req.Name,
			"path", req.Path,
			"reason", reason,
			"retry", retry,
			"delay", d.Delay,
			"error", d.Err,
		)

		if c.onRetry != nil {
			c.onRetry(req, retry, d)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.Delay):
		}
	}
}

// Truncate shortens s to at most n bytes for log output.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
