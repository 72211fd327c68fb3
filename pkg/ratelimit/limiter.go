package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for a request ceiling
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// Ceiling is a token bucket that caps the request rate against the upstream
// API regardless of the jitter gate in front of each page.
type Ceiling struct {
	limiter *rate.Limiter
}

// NewCeiling allows requestsPerMinute requests per minute with the given burst
func NewCeiling(requestsPerMinute, burst int) *Ceiling {
	if requestsPerMinute <= 0 {
		return &Ceiling{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &Ceiling{limiter: rate.NewLimiter(rate.Every(every), burst)}
}

// Allow checks if a request can proceed
func (c *Ceiling) Allow() bool {
	return c.limiter.Allow()
}

// Wait blocks until a token is available
func (c *Ceiling) Wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// Unlimited returns a Limiter that never blocks
func Unlimited() Limiter {
	return &Ceiling{limiter: rate.NewLimiter(rate.Inf, 0)}
}
