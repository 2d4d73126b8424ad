package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasterescue/internal/config"
	"wasterescue/internal/domain"
	"wasterescue/internal/extraction"
	"wasterescue/internal/extraction/openai"
	"wasterescue/internal/port"
)

func newTestExtractor(serverURL string) *openai.Extractor {
	return openai.NewExtractorWithEndpoint(&config.ExtractorProviderConfig{
		Provider: "openai",
		APIKey:   "sk-test",
	}, serverURL)
}

var input = port.ExtractInput{
	Filename:    "collecct_data_batch_5.xlsx",
	ContentType: domain.ContentTypes["xlsx"],
	Text:        "address,weight\nKungsgatan 4,500 kg\n",
	Language:    "sv",
}

func TestOpenAIExtractor_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "gpt-4o", reqBody["model"])
		msg := reqBody["messages"].([]interface{})[0].(map[string]interface{})
		assert.Contains(t, msg["content"], "Excel preview (first 50 rows):")

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": `[{"weight":"500 kg","address":"Kungsgatan 4"}]`}, "finish_reason": "stop"},
			},
		})
	}))
	defer server.Close()

	rows, err := newTestExtractor(server.URL).Extract(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Kungsgatan 4", rows[0]["address"])
}

func TestOpenAIExtractor_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	rows, err := newTestExtractor(server.URL).Extract(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestOpenAIExtractor_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestExtractor(server.URL).Extract(context.Background(), input)
	var rlErr *extraction.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "openai", rlErr.Provider)
}

func TestOpenAIExtractor_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newTestExtractor(server.URL).Extract(context.Background(), input)
	assert.ErrorContains(t, err, "unmarshaling response")
}
