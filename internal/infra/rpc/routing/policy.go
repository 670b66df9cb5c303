// Package routing decides what to do with each response from the annotation service.
//
// This package contains:
//   - RetryConfig: retry budgets and the backoff schedule
//   - Policy: maps a status code (or transport error) to a Decision
//   - Sentinel errors for the failure taxonomy
package routing

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	// MaxRetries bounds retries after transient failures (5xx, connection errors).
	MaxRetries int

	// MaxRateLimitRetries bounds retries after 429 responses. It is counted
	// separately from MaxRetries.
	MaxRateLimitRetries int

	// InitialDelay is the backoff base unit; the Nth retry waits InitialDelay * 2^N.
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:          5,
	MaxRateLimitRetries: 10,
	InitialDelay:        1 * time.Second,
	MaxDelay:            60 * time.Second,
	BackoffMultiple:     2.0,
}

// Action determines how to handle a response.
type Action int

const (
	ActionSucceed Action = iota
	ActionRetry
	ActionFail
)

func (a Action) String() string {
	switch a {
	case ActionSucceed:
		return "succeed"
	case ActionRetry:
		return "retry"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Decision is the outcome of classifying one attempt.
type Decision struct {
	Action Action

	// Delay is how long to wait before the next attempt (ActionRetry only).
	Delay time.Duration

	// RateLimited marks a retry triggered by 429; the caller penalizes the gate.
	RateLimited bool

	// Err carries the failure class (ActionFail, and ActionRetry for logging).
	Err error
}

// Attempts counts failures seen so far in one fetch loop, including the one
// being classified.
type Attempts struct {
	Transient   int
	RateLimited int
}

// Policy classifies responses according to a RetryConfig.
type Policy struct {
	cfg RetryConfig
}

// NewPolicy creates a policy, filling zero fields from DefaultRetryConfig.
func NewPolicy(cfg RetryConfig) *Policy {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxRateLimitRetries < 0 {
		cfg.MaxRateLimitRetries = 0
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultRetryConfig.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryConfig.MaxDelay
	}
	if cfg.BackoffMultiple <= 1 {
		cfg.BackoffMultiple = DefaultRetryConfig.BackoffMultiple
	}
	return &Policy{cfg: cfg}
}

// Config returns the effective configuration.
func (p *Policy) Config() RetryConfig {
	return p.cfg
}

// Classify maps an HTTP status and headers to a Decision. attempts must
// already include the response being classified.
func (p *Policy) Classify(status int, header http.Header, attempts Attempts) Decision {
	switch {
	case status >= 200 && status < 300:
		return Decision{Action: ActionSucceed}

	case status == http.StatusNotFound:
		return Decision{Action: ActionFail, Err: ErrNotFound}

	case status == http.StatusTooManyRequests:
		if attempts.RateLimited > p.cfg.MaxRateLimitRetries {
			return Decision{
				Action: ActionFail,
				Err:    fmt.Errorf("%w: %d responses with status 429", ErrRateLimited, attempts.RateLimited),
			}
		}
		delay, ok := ParseRetryAfter(header.Get("Retry-After"), time.Now())
		if !ok {
			delay = p.Backoff(attempts.RateLimited)
		}
		return Decision{
			Action:      ActionRetry,
			Delay:       delay,
			RateLimited: true,
			Err:         ErrRateLimited,
		}

	case isTransientStatus(status):
		return p.transient(fmt.Errorf("%w: status %d", ErrTransient, status), attempts)

	default:
		return Decision{
			Action: ActionFail,
			Err:    fmt.Errorf("%w: status %d", ErrClientError, status),
		}
	}
}

// ClassifyTransportError handles a failure to obtain any response.
func (p *Policy) ClassifyTransportError(err error, attempts Attempts) Decision {
	return p.transient(fmt.Errorf("%w: %v", ErrTransient, err), attempts)
}

func (p *Policy) transient(cause error, attempts Attempts) Decision {
	if attempts.Transient > p.cfg.MaxRetries {
		return Decision{
			Action: ActionFail,
			Err:    fmt.Errorf("%w after %d retries: %v", ErrExhaustedRetries, p.cfg.MaxRetries, cause),
		}
	}
	return Decision{
		Action: ActionRetry,
		Delay:  p.Backoff(attempts.Transient),
		Err:    cause,
	}
}

// Backoff returns the delay before retry number n (1-based), capped at MaxDelay.
func (p *Policy) Backoff(n int) time.Duration {
	delay := float64(p.cfg.InitialDelay) * math.Pow(p.cfg.BackoffMultiple, float64(n))
	if delay > float64(p.cfg.MaxDelay) {
		delay = float64(p.cfg.MaxDelay)
	}
	return time.Duration(delay)
}

func isTransientStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// maxRetryAfter is the largest representable delay; longer requests saturate.
const maxRetryAfter = time.Duration(math.MaxInt64)

// ParseRetryAfter reads a Retry-After value as delta-seconds (fractional
// values allowed) or an HTTP-date relative to now. Values too large for a
// time.Duration saturate at the maximum.
func ParseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}

	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, false
		}
		if secs >= maxRetryAfter.Seconds() {
			return maxRetryAfter, true
		}
		return time.Duration(secs * float64(time.Second)), true
	}

	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}

	return 0, false
}
