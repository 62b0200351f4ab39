// Package ratelimit wraps golang.org/x/time/rate with named limiters so
// provider clients can throttle their outbound calls politely.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter throttles calls to one external service.
type Limiter struct {
	name    string
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond sustained calls with an
// equal burst size.
func New(name string, requestsPerSecond int) *Limiter {
	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// Wait blocks until the next call may proceed or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}

// Name returns the service name this limiter guards.
func (l *Limiter) Name() string {
	return l.name
}
