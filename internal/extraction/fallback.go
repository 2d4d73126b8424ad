package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wasterescue/internal/domain"
	"wasterescue/internal/logging"
	"wasterescue/internal/port"
)

// chainLink is one provider in a fallback chain. A rate-limited provider is
// benched until coolUntil.
type chainLink struct {
	name      string
	extractor port.RowExtractor

	mu        sync.Mutex
	coolUntil time.Time
}

func (l *chainLink) benched(now time.Time) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.coolUntil, now.Before(l.coolUntil)
}

func (l *chainLink) bench(until time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until.After(l.coolUntil) {
		l.coolUntil = until
	}
}

// FallbackExtractor asks each provider in turn until one answers.
// Providers that reported a rate limit are skipped until their wait expires.
type FallbackExtractor struct {
	chain  []*chainLink
	now    func() time.Time
	logger *slog.Logger
}

// NewFallbackExtractor chains extractors in priority order. names[i] labels
// extractors[i] in logs.
func NewFallbackExtractor(extractors []port.RowExtractor, names []string, logger *slog.Logger) *FallbackExtractor {
	chain := make([]*chainLink, len(extractors))
	for i, ex := range extractors {
		name := fmt.Sprintf("provider-%d", i)
		if i < len(names) {
			name = names[i]
		}
		chain[i] = &chainLink{name: name, extractor: ex}
	}
	return &FallbackExtractor{
		chain:  chain,
		now:    time.Now,
		logger: logging.OrDefault(logger).With("component", "extraction.fallback"),
	}
}

func (f *FallbackExtractor) Extract(ctx context.Context, input port.ExtractInput) ([]domain.RawRow, error) {
	var (
		lastErr    error
		soonest    time.Time
		hardFailed bool
	)
	earlier := func(t time.Time) {
		if soonest.IsZero() || t.Before(soonest) {
			soonest = t
		}
	}

	for _, link := range f.chain {
		now := f.now()
		if until, ok := link.benched(now); ok {
			f.logger.Debug("provider cooling down", "provider", link.name, "until", until.Format(time.RFC3339))
			earlier(until)
			continue
		}

		rows, err := link.extractor.Extract(ctx, input)
		if err == nil {
			return rows, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		f.logger.Warn("provider failed", "provider", link.name, "file", input.Filename, "error", err)
		lastErr = err

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			hardFailed = true
			continue
		}
		until := now.Add(rl.RetryAfter)
		link.bench(until)
		earlier(until)
	}

	if hardFailed {
		return nil, fmt.Errorf("all extraction providers failed: %w", lastErr)
	}

	wait := soonest.Sub(f.now())
	if wait < time.Second {
		wait = time.Second
	}
	return nil, NewRateLimitError("all", errors.New("every extraction provider is rate limited"), int(wait.Seconds()))
}
