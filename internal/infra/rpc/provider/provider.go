// Package provider implements the HTTP transport used by the annotation client.
//
// This package contains:
//   - Transport interface: send a request, get status, headers and body back
//   - HTTPProvider: net/http implementation with connection pooling
//   - ProviderMonitor: latency and rate-limit tracking
//
// A non-2xx status is not an error at this layer. Only failures to obtain a
// response at all (DNS, connection reset, timeout) are returned as errors; the
// retry policy upstream decides what a status means.
package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Request describes a single REST call relative to the provider endpoint.
type Request struct {
	// Name labels the call for metrics and logs (e.g. "gene").
	Name string

	// Method is the HTTP method, GET when empty.
	Method string

	// Path is appended to the provider endpoint, e.g. "/overlap/region/human/7:1-2".
	Path string

	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is the raw outcome of a Request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Latency    time.Duration
}

// Transport sends a request and returns the raw response.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Provider is a named Transport with health reporting and lifecycle.
type Provider interface {
	Transport

	// GetName returns provider identifier (e.g. "ensembl-grch37")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}
