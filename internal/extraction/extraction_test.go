package extraction_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wasterescue/internal/config"
	"wasterescue/internal/domain"
	"wasterescue/internal/extraction"
	"wasterescue/internal/port"
	"wasterescue/mocks"
)

var testInput = port.ExtractInput{
	Filename:    "waste_invoice_20241215.pdf",
	ContentType: "application/pdf",
	Text:        "Storgatan 12 2.5 ton metal",
	Language:    "sv",
}

func sampleRows() []domain.RawRow {
	return []domain.RawRow{{"weight": "2.5 ton", "address": "Storgatan 12"}}
}

func TestParseRows_PlainArray(t *testing.T) {
	rows := extraction.ParseRows(`[{"weight":"10 kg","address":"Storgatan 12","confidence":0.9}]`)
	require.Len(t, rows, 1)
	assert.Equal(t, "10 kg", rows[0]["weight"])
	assert.Equal(t, json.Number("0.9"), rows[0]["confidence"])
}

func TestParseRows_WrappedInProse(t *testing.T) {
	reply := "Here is the data:\n```json\n[{\"weight\":\"1 ton\",\"address\":\"Kungsgatan 4\"},{\"weight\":\"5 kg\",\"address\":\"\"}]\n```\nLet me know."
	rows := extraction.ParseRows(reply)
	assert.Len(t, rows, 2)
}

func TestParseRows_DropsNonObjects(t *testing.T) {
	rows := extraction.ParseRows(`[{"weight":"1 kg"}, 42, "x", null]`)
	assert.Len(t, rows, 1)
}

func TestParseRows_UnparsableIsEmpty(t *testing.T) {
	for _, reply := range []string{"", "no data found", `{"weight":"1 kg"}`, "[broken"} {
		rows := extraction.ParseRows(reply)
		assert.NotNil(t, rows, reply)
		assert.Empty(t, rows, reply)
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"waste_report_finland.xlsx":   domain.LanguageFinnish,
		"SUOMI_raportti.pdf":          domain.LanguageFinnish,
		"invoice_norway_20241213.pdf": domain.LanguageNorwegian,
		"english_summary.pdf":         domain.LanguageEnglish,
		"avfall_rapport_20241214.pdf": domain.LanguageSwedish,
		"collecct_data_batch_5.xlsx":  domain.LanguageSwedish,
	}
	for name, want := range cases {
		assert.Equal(t, want, extraction.DetectLanguage(name), name)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := extraction.BuildMessage(testInput)
	assert.Contains(t, msg, "LANGUAGE: sv")
	assert.Contains(t, msg, "Document text:\nStorgatan 12 2.5 ton metal")

	xlsx := testInput
	xlsx.ContentType = domain.ContentTypes["xlsx"]
	xlsx.Language = ""
	msg = extraction.BuildMessage(xlsx)
	assert.Contains(t, msg, "Excel preview (first 50 rows):\n")
	assert.Contains(t, msg, "LANGUAGE: sv")
}

func TestRateLimitError(t *testing.T) {
	base := errors.New("429")
	err := extraction.NewRateLimitError("claude", base, 0)
	assert.Equal(t, 60*time.Second, err.RetryAfter)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "claude rate limited")

	assert.Equal(t, 30, extraction.ParseRetryAfterHeader("30"))
	assert.Equal(t, 0, extraction.ParseRetryAfterHeader(""))
	assert.Equal(t, 0, extraction.ParseRetryAfterHeader("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestFactory_RegisterAndCreate(t *testing.T) {
	extraction.RegisterProvider("test-provider", func(cfg *config.ExtractorProviderConfig) (port.RowExtractor, error) {
		return new(mocks.MockRowExtractor), nil
	})

	ex, err := extraction.NewExtractor(&config.ExtractorProviderConfig{Provider: "test-provider"})
	assert.NoError(t, err)
	assert.NotNil(t, ex)
}

func TestFactory_UnknownProvider(t *testing.T) {
	ex, err := extraction.NewExtractor(&config.ExtractorProviderConfig{Provider: "nonexistent-provider-xyz"})
	assert.Nil(t, ex)
	assert.ErrorContains(t, err, "unknown extraction provider")
}

func TestNewFromConfig_Chain(t *testing.T) {
	first := new(mocks.MockRowExtractor)
	second := new(mocks.MockRowExtractor)
	extraction.RegisterProvider("chain-first", func(*config.ExtractorProviderConfig) (port.RowExtractor, error) { return first, nil })
	extraction.RegisterProvider("chain-second", func(*config.ExtractorProviderConfig) (port.RowExtractor, error) { return second, nil })

	first.On("Extract", mock.Anything, testInput).Return(nil, errors.New("boom"))
	second.On("Extract", mock.Anything, testInput).Return(sampleRows(), nil)

	ex, err := extraction.NewFromConfig(&config.ExtractorConfig{
		Primary:           config.ExtractorProviderConfig{Provider: "chain-first"},
		Secondary:         config.ExtractorProviderConfig{Provider: "chain-second"},
		RequestsPerMinute: 6000,
	}, nil)
	require.NoError(t, err)

	rows, err := ex.Extract(context.Background(), testInput)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)
}

func TestNewFromConfig_SingleProvider(t *testing.T) {
	only := new(mocks.MockRowExtractor)
	extraction.RegisterProvider("single", func(*config.ExtractorProviderConfig) (port.RowExtractor, error) { return only, nil })

	ex, err := extraction.NewFromConfig(&config.ExtractorConfig{Provider: "single"}, nil)
	require.NoError(t, err)
	assert.Same(t, only, ex)
}

func TestNewFromConfig_UnknownProvider(t *testing.T) {
	_, err := extraction.NewFromConfig(&config.ExtractorConfig{Provider: "missing-provider"}, nil)
	assert.Error(t, err)
}

func TestFallbackExtractor_FirstSucceeds(t *testing.T) {
	e1 := new(mocks.MockRowExtractor)
	e2 := new(mocks.MockRowExtractor)
	e1.On("Extract", mock.Anything, testInput).Return(sampleRows(), nil)

	fe := extraction.NewFallbackExtractor([]port.RowExtractor{e1, e2}, []string{"claude", "openai"}, nil)
	rows, err := fe.Extract(context.Background(), testInput)

	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	e2.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestFallbackExtractor_AllFail(t *testing.T) {
	e1 := new(mocks.MockRowExtractor)
	e2 := new(mocks.MockRowExtractor)
	e1.On("Extract", mock.Anything, testInput).Return(nil, errors.New("first"))
	e2.On("Extract", mock.Anything, testInput).Return(nil, errors.New("second"))

	fe := extraction.NewFallbackExtractor([]port.RowExtractor{e1, e2}, []string{"claude", "openai"}, nil)
	_, err := fe.Extract(context.Background(), testInput)

	assert.ErrorContains(t, err, "all extraction providers failed")
	assert.ErrorContains(t, err, "second")
}

func TestFallbackExtractor_RateLimitOpensCircuit(t *testing.T) {
	e1 := new(mocks.MockRowExtractor)
	e2 := new(mocks.MockRowExtractor)
	e1.On("Extract", mock.Anything, testInput).Return(nil, extraction.NewRateLimitError("claude", errors.New("429"), 60)).Once()
	e2.On("Extract", mock.Anything, testInput).Return(sampleRows(), nil).Twice()

	fe := extraction.NewFallbackExtractor([]port.RowExtractor{e1, e2}, []string{"claude", "openai"}, nil)

	_, err := fe.Extract(context.Background(), testInput)
	require.NoError(t, err)
	_, err = fe.Extract(context.Background(), testInput)
	require.NoError(t, err)

	e1.AssertNumberOfCalls(t, "Extract", 1)
	e2.AssertNumberOfCalls(t, "Extract", 2)
}

func TestFallbackExtractor_AllRateLimited(t *testing.T) {
	e1 := new(mocks.MockRowExtractor)
	e1.On("Extract", mock.Anything, testInput).Return(nil, extraction.NewRateLimitError("claude", errors.New("429"), 30)).Once()

	fe := extraction.NewFallbackExtractor([]port.RowExtractor{e1}, []string{"claude"}, nil)

	_, err := fe.Extract(context.Background(), testInput)
	var rlErr *extraction.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "all", rlErr.Provider)

	_, err = fe.Extract(context.Background(), testInput)
	require.ErrorAs(t, err, &rlErr)
	e1.AssertNumberOfCalls(t, "Extract", 1)
}

func TestThrottled_PassesThroughAndHonoursCancel(t *testing.T) {
	inner := new(mocks.MockRowExtractor)
	inner.On("Extract", mock.Anything, testInput).Return(sampleRows(), nil).Once()

	th := extraction.NewThrottled(inner, 1)
	rows, err := th.Extract(context.Background(), testInput)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// The single token is spent; a cancelled wait must not reach the provider.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = th.Extract(ctx, testInput)
	assert.Error(t, err)
	inner.AssertNumberOfCalls(t, "Extract", 1)
}
