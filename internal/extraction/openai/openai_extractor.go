package openai

import (
	"context"

	"wasterescue/internal/config"
	"wasterescue/internal/domain"
	"wasterescue/internal/extraction"
	"wasterescue/internal/port"
)

const (
	apiURL       = "https://api.openai.com/v1/chat/completions"
	defaultModel = "gpt-4o"
)

func init() {
	extraction.RegisterProvider("openai", func(cfg *config.ExtractorProviderConfig) (port.RowExtractor, error) {
		return NewExtractor(cfg), nil
	})
}

// Extractor asks the OpenAI Chat Completions API for waste rows.
type Extractor struct {
	model string
	api   *extraction.APIClient
}

func NewExtractor(cfg *config.ExtractorProviderConfig) *Extractor {
	return NewExtractorWithEndpoint(cfg, apiURL)
}

func NewExtractorWithEndpoint(cfg *config.ExtractorProviderConfig, endpoint string) *Extractor {
	return &Extractor{
		model: extraction.ModelOrDefault(cfg.DefaultModel, defaultModel),
		api: extraction.NewAPIClient("openai", endpoint, cfg.TimeoutSecs, map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		}),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	MaxCompletionTokens int           `json:"max_completion_tokens"`
	Messages            []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) ([]domain.RawRow, error) {
	req := chatRequest{
		Model:               e.model,
		MaxCompletionTokens: 4096,
		Messages:            []chatMessage{{Role: "user", Content: extraction.BuildMessage(input)}},
	}
	var resp chatResponse
	if err := e.api.PostJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return []domain.RawRow{}, nil
	}
	return extraction.ParseRows(resp.Choices[0].Message.Content), nil
}
