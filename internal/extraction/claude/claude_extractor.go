package claude

import (
	"context"

	"wasterescue/internal/config"
	"wasterescue/internal/domain"
	"wasterescue/internal/extraction"
	"wasterescue/internal/port"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	defaultModel = "claude-sonnet-4-20250514"
	maxTokens    = 4096
)

func init() {
	extraction.RegisterProvider("claude", func(cfg *config.ExtractorProviderConfig) (port.RowExtractor, error) {
		return NewExtractor(cfg), nil
	})
}

// Extractor asks the Anthropic Messages API for waste rows.
type Extractor struct {
	model string
	api   *extraction.APIClient
}

func NewExtractor(cfg *config.ExtractorProviderConfig) *Extractor {
	return NewExtractorWithEndpoint(cfg, apiURL)
}

// NewExtractorWithEndpoint targets a different Messages endpoint, such as a test server.
func NewExtractorWithEndpoint(cfg *config.ExtractorProviderConfig, endpoint string) *Extractor {
	return &Extractor{
		model: extraction.ModelOrDefault(cfg.DefaultModel, defaultModel),
		api: extraction.NewAPIClient("claude", endpoint, cfg.TimeoutSecs, map[string]string{
			"x-api-key":         cfg.APIKey,
			"anthropic-version": apiVersion,
		}),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// text joins every text block of the reply.
func (r messagesResponse) text() string {
	var out string
	for _, block := range r.Content {
		if block.Type == "" || block.Type == "text" {
			out += block.Text
		}
	}
	return out
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) ([]domain.RawRow, error) {
	req := messagesRequest{
		Model:     e.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: extraction.BuildMessage(input)}},
	}
	var resp messagesResponse
	if err := e.api.PostJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	return extraction.ParseRows(resp.text()), nil
}
