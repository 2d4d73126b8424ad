package gemini

import (
	"context"
	"fmt"
	"strings"

	"wasterescue/internal/config"
	"wasterescue/internal/domain"
	"wasterescue/internal/extraction"
	"wasterescue/internal/port"
)

const (
	apiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel = "gemini-2.0-flash"
)

func init() {
	extraction.RegisterProvider("gemini", func(cfg *config.ExtractorProviderConfig) (port.RowExtractor, error) {
		return NewExtractor(cfg), nil
	})
}

// Extractor asks Gemini's generateContent endpoint for waste rows.
type Extractor struct {
	api *extraction.APIClient
}

// NewExtractor derives the endpoint from the configured model.
func NewExtractor(cfg *config.ExtractorProviderConfig) *Extractor {
	model := extraction.ModelOrDefault(cfg.DefaultModel, defaultModel)
	return NewExtractorWithEndpoint(cfg, fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model))
}

func NewExtractorWithEndpoint(cfg *config.ExtractorProviderConfig, endpoint string) *Extractor {
	return &Extractor{
		api: extraction.NewAPIClient("gemini", endpoint, cfg.TimeoutSecs, map[string]string{
			"x-goog-api-key": cfg.APIKey,
		}),
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) ([]domain.RawRow, error) {
	var req generateRequest
	req.Contents = []content{{Role: "user", Parts: []part{{Text: extraction.BuildMessage(input)}}}}
	req.GenerationConfig.MaxOutputTokens = 4096

	var resp generateResponse
	if err := e.api.PostJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return []domain.RawRow{}, nil
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return extraction.ParseRows(sb.String()), nil
}
