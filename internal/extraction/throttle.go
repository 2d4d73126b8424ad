package extraction

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"wasterescue/internal/domain"
	"wasterescue/internal/port"
)

// Throttled caps the call rate of a RowExtractor with a token bucket shared by
// all workers of a batch.
type Throttled struct {
	next    port.RowExtractor
	limiter *rate.Limiter
}

// NewThrottled allows requestsPerMinute calls per minute with a burst of one.
func NewThrottled(next port.RowExtractor, requestsPerMinute int) *Throttled {
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

func (t *Throttled) Extract(ctx context.Context, input port.ExtractInput) ([]domain.RawRow, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("extraction.Throttled: %w", err)
	}
	return t.next.Extract(ctx, input)
}
