// Package resilience wraps outbound calls to Supabase and OpenRouter
// with retry, circuit-breaking, and concurrency limiting so a slow or
// failing upstream cannot take the API down with it.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

// Config carries the retry and concurrency knobs, loaded from the
// environment at startup.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// RetryWithBackoff runs op until it succeeds or the retry budget is
// spent. Waits double each attempt, with jitter so callers retrying the
// same outage don't stampede. Context cancellation aborts the wait.
func RetryWithBackoff(ctx context.Context, cfg Config, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			jitter := time.Duration(rand.Int63n(int64(backoff / 2)))
			wait := backoff + jitter

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// NewCircuitBreaker builds a breaker for one upstream. It trips once an
// upstream shows a sustained failure rate, not on the first error.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: probe with 3 requests
		Interval:    30 * time.Second, // closed: counters reset every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// Bulkhead caps how many requests may hit an upstream at once.
type Bulkhead struct {
	slots chan struct{}
}

// NewBulkhead creates a bulkhead admitting maxConcurrency callers.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	return &Bulkhead{slots: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot opens or the context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot to the pool.
func (b *Bulkhead) Release() {
	<-b.slots
}
