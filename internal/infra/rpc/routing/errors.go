package routing

import "errors"

// Failure classes a fetch can end with. Callers inspect them with errors.Is.
var (
	// ErrNotFound is a valid empty answer (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrClientError means the request itself is wrong and will never succeed.
	ErrClientError = errors.New("client error")

	// ErrTransient is a 5xx response or a connection-level failure.
	ErrTransient = errors.New("transient failure")

	// ErrRateLimited is returned when the rate-limit retry budget runs out.
	ErrRateLimited = errors.New("rate limited")

	// ErrExhaustedRetries is returned when transient failures outlast the retry budget.
	ErrExhaustedRetries = errors.New("exhausted retries")
)
