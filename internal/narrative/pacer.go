package narrative

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out generation calls.
type Pacer interface {
	// Wait blocks until the next call may start or ctx is done.
	Wait(ctx context.Context) error
}

// RatePacer lets one call start per delay. The first call starts immediately.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer creates a pacer. A non-positive delay disables pacing.
func NewRatePacer(delay time.Duration) *RatePacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &RatePacer{limiter: rate.NewLimiter(limit, 1)}
}

func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
