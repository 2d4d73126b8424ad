package extraction

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRetryAfter = 60 * time.Second
	maxErrorBody      = 512
)

// ProviderError is a non-2xx reply from an extraction provider.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Body)
}

// Retryable reports whether another attempt might succeed.
func (e *ProviderError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

func newProviderError(provider string, status int, body []byte) *ProviderError {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return &ProviderError{Provider: provider, Status: status, Body: text}
}

// RateLimitError is returned when a provider answers 429, or when every
// provider in a chain is cooling down.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// NewRateLimitError wraps err. A non-positive wait becomes one minute.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	wait := time.Duration(retryAfterSecs) * time.Second
	if wait <= 0 {
		wait = defaultRetryAfter
	}
	return &RateLimitError{Err: err, RetryAfter: wait, Provider: provider}
}

// ParseRetryAfterHeader reads the delta-seconds form of Retry-After.
// HTTP-date values and garbage yield 0.
func ParseRetryAfterHeader(val string) int {
	secs, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}
