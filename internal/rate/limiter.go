package rate

import (
	"context"
	"fmt"
	"time"
)

// Limiter gates outbound API calls so we stay under Gmail quota.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket is a fixed-rate token bucket with a configurable burst. Tokens
// accumulate up to the burst size while the bucket is idle, so short runs of
// calls proceed without delay before the steady rate takes over.
type TokenBucket struct {
	ticker *time.Ticker
	tokens chan struct{}
	quit   chan struct{}
	done   chan struct{}
}

// NewTokenBucket returns a limiter releasing rps tokens per second with the
// given burst capacity. Non-positive arguments are clamped to 1.
func NewTokenBucket(rps, burst int) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	tb := &TokenBucket{
		ticker: time.NewTicker(time.Second / time.Duration(rps)),
		tokens: make(chan struct{}, burst),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for i := 0; i < burst; i++ {
		tb.tokens <- struct{}{}
	}
	go tb.refill()
	return tb
}

// refill runs until Stop. Ticker.Stop does not close the tick channel, so
// shutdown needs its own signal.
func (t *TokenBucket) refill() {
	defer close(t.done)
	for {
		select {
		case <-t.quit:
			return
		case <-t.ticker.C:
			select {
			case t.tokens <- struct{}{}:
			default:
				// bucket full, drop the token
			}
		}
	}
}

// Wait blocks until a token is available or the context is canceled.
func (t *TokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate wait canceled: %w", ctx.Err())
	case <-t.tokens:
		return nil
	}
}

// Stop halts the refill loop and returns once it has exited. Pending Wait
// calls only return once their context is canceled. Stop must be called at
// most once.
func (t *TokenBucket) Stop() {
	t.ticker.Stop()
	close(t.quit)
	<-t.done
}

var _ Limiter = (*TokenBucket)(nil)
