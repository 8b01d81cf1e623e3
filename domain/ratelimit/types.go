// Package ratelimit provides domain types and interfaces for rate limiting.
package ratelimit

import (
	"context"
	"time"
)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerWindow is the maximum number of requests allowed in the window.
	RequestsPerWindow int
	// WindowSize is the duration of the sliding window.
	WindowSize time.Duration
}

// Enabled reports whether the configuration limits anything at all.
func (c Config) Enabled() bool {
	return c.RequestsPerWindow > 0 && c.WindowSize > 0
}

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	// RetryAfter is only set when the request was denied.
	RetryAfter time.Duration
}

// Limiter checks whether a request identified by key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}
