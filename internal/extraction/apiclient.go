package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultProviderTimeout = 120 * time.Second

// APIClient posts JSON prompts to one provider endpoint. Provider adapters
// only build the payload and pick the reply text out of the response.
type APIClient struct {
	provider string
	endpoint string
	headers  http.Header
	http     *http.Client
}

// NewAPIClient builds a client for provider. A zero timeout means two minutes.
func NewAPIClient(provider, endpoint string, timeoutSecs int, headers map[string]string) *APIClient {
	timeout := time.Duration(timeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	h := make(http.Header, len(headers)+1)
	h.Set("Content-Type", "application/json")
	for k, v := range headers {
		h.Set(k, v)
	}
	return &APIClient{
		provider: provider,
		endpoint: endpoint,
		headers:  h,
		http:     &http.Client{Timeout: timeout},
	}
}

// Endpoint is the URL requests are sent to.
func (c *APIClient) Endpoint() string { return c.endpoint }

// PostJSON sends payload and decodes a 200 reply into out. Other statuses
// become *ProviderError, and 429 is additionally wrapped in *RateLimitError.
func (c *APIClient) PostJSON(ctx context.Context, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.headers.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s API: %w", c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", c.provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		perr := newProviderError(c.provider, resp.StatusCode, raw)
		if resp.StatusCode == http.StatusTooManyRequests {
			return NewRateLimitError(c.provider, perr, ParseRetryAfterHeader(resp.Header.Get("Retry-After")))
		}
		return perr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshaling response: %w", err)
	}
	return nil
}

// ModelOrDefault returns model, or fallback when it is blank.
func ModelOrDefault(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
