// Package probe decides whether a single domain is registered, speaking RDAP
// and WHOIS with retries, fallback and per-registry pacing.
package probe

import (
	"fmt"
	"time"

	"github.com/hakim/snipe/internal/models"
)

// TransportError is a network-level failure: connection refused, timeout,
// reset or a 5xx. It is retried.
type TransportError struct {
	Protocol models.Protocol
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Protocol, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a response the prober could not interpret. It is never retried.
type ProtocolError struct {
	Protocol models.Protocol
	Msg      string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s protocol: %s", e.Protocol, e.Msg)
}

// RateLimitedError is an explicit refusal by the registry to answer now.
type RateLimitedError struct {
	Protocol   models.Protocol
	Host       string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited by %s (retry after %s)", e.Protocol, e.Host, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited by %s", e.Protocol, e.Host)
}
