package sources

import (
	"context"
	"math"
	"time"
)

// Backoff computes the retry delays used during retrieval. The page retry
// loop uses the linear schedule for rate-limit responses; the pagination
// loop uses the exponential schedule when a page fetch fails outright.
type Backoff struct {
	// Base is the unit delay. Zero means one second.
	Base time.Duration
}

// Linear returns Base scaled by the 1-based attempt number: Base, 2*Base,
// 3*Base, and so on.
func (b Backoff) Linear(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * b.base()
}

// Exponential returns Base scaled by 2^failures: 2*Base after the first
// failure, 4*Base after the second, doubling each time.
func (b Backoff) Exponential(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	return time.Duration(math.Pow(2, float64(failures))) * b.base()
}

// Sleep blocks for d, returning the context error if the context is done
// first.
func (b Backoff) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b Backoff) base() time.Duration {
	if b.Base <= 0 {
		return time.Second
	}
	return b.Base
}
