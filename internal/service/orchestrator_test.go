package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wasterescue/internal/domain"
	"wasterescue/internal/port"
	"wasterescue/internal/preview"
	reviewfs "wasterescue/internal/review/fs"
	"wasterescue/internal/service"
	fsstore "wasterescue/internal/storage/fs"
	"wasterescue/mocks"
)

type orchestratorDeps struct {
	store     *mocks.MockDocumentStore
	extractor *mocks.MockRowExtractor
	queue     *mocks.MockReviewQueue
	notifier  *mocks.MockReviewNotifier
}

func newOrchestrator(concurrency int) (service.Orchestrator, *orchestratorDeps) {
	d := &orchestratorDeps{
		store:     new(mocks.MockDocumentStore),
		extractor: new(mocks.MockRowExtractor),
		queue:     new(mocks.MockReviewQueue),
		notifier:  new(mocks.MockReviewNotifier),
	}
	o := service.NewOrchestrator(d.store, d.extractor, preview.NewDecoder(nil), d.queue, d.notifier,
		service.NewKeyLock(), service.OrchestratorConfig{Concurrency: concurrency}, nil)
	return o, d
}

func pending(names ...string) []domain.DocumentRecord {
	t0 := time.Date(2024, 12, 15, 8, 0, 0, 0, time.UTC)
	out := make([]domain.DocumentRecord, len(names))
	for i, n := range names {
		out[i] = domain.DocumentRecord{
			Name:        n,
			ContentType: domain.ContentTypeFor(n),
			Status:      domain.DocumentStatusFailed,
			ModifiedAt:  t0.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func forFile(name string) any {
	return mock.MatchedBy(func(in port.ExtractInput) bool { return in.Filename == name })
}

func goodRows() []domain.RawRow {
	return []domain.RawRow{
		{"weight": "2.5 ton", "address": "Storgatan 12", "waste_type": "metal", "date": "2024-05-01", "confidence": 0.9},
		{"weight": "10 kg", "address": ""},
	}
}

// expectHappyPath wires the store and queue for documents that are processed
// without a prior review entry.
func (d *orchestratorDeps) expectHappyPath(names ...string) {
	for _, n := range names {
		d.queue.On("Get", mock.Anything, domain.DocumentID(n)).Return(nil, domain.ErrReviewNotFound)
		d.store.On("MarkProcessing", mock.Anything, n, mock.AnythingOfType("string")).Return(nil)
		d.store.On("Download", mock.Anything, n, mock.Anything).Return(nil, "weight;address\n2.5 ton;Storgatan 12")
		d.store.On("SetMetadata", mock.Anything, n, mock.Anything).Return(nil)
	}
	d.queue.On("Put", mock.Anything, mock.AnythingOfType("*domain.ReviewEntry")).Return(nil)
}

func TestRunBatch_NoDocumentsSignal(t *testing.T) {
	o, d := newOrchestrator(1)
	d.store.On("ListPending", mock.Anything).Return([]domain.DocumentRecord{}, nil)

	report, err := o.RunBatch(context.Background(), 10)

	assert.ErrorIs(t, err, domain.ErrNoDocuments)
	assert.Nil(t, report)
	d.notifier.AssertNotCalled(t, "NotifyReviewReady", mock.Anything, mock.Anything)
}

func TestRunBatch_ListFailureIsBatchError(t *testing.T) {
	o, d := newOrchestrator(1)
	d.store.On("ListPending", mock.Anything).Return(nil, errors.New("store unreachable"))

	_, err := o.RunBatch(context.Background(), 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoDocuments)
}

func TestRunBatch_FailedDocumentIsolated(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		o, d := newOrchestrator(concurrency)
		d.store.On("ListPending", mock.Anything).Return(pending("doc1.csv", "doc2.csv", "doc3.csv"), nil)
		d.expectHappyPath("doc1.csv", "doc3.csv")
		d.queue.On("Get", mock.Anything, "doc2.csv").Return(nil, domain.ErrReviewNotFound)
		d.store.On("MarkProcessing", mock.Anything, "doc2.csv", mock.AnythingOfType("string")).Return(nil)
		d.store.On("Download", mock.Anything, "doc2.csv", mock.Anything).Return(nil, "weight;address")
		d.extractor.On("Extract", mock.Anything, forFile("doc1.csv")).Return(goodRows(), nil)
		d.extractor.On("Extract", mock.Anything, forFile("doc2.csv")).Return(nil, errors.New("provider timeout"))
		d.extractor.On("Extract", mock.Anything, forFile("doc3.csv")).Return(goodRows()[:1], nil)
		d.notifier.On("NotifyReviewReady", mock.Anything, mock.Anything).Return(nil)

		report, err := o.RunBatch(context.Background(), 10)
		require.NoError(t, err)

		assert.Equal(t, domain.BatchStatusSuccess, report.Status)
		assert.Equal(t, []string{"doc2.csv"}, report.Failed)
		require.Len(t, report.Results, 2)
		assert.Equal(t, "doc1.csv", report.Results[0].Filename)
		assert.Equal(t, "doc3.csv", report.Results[1].Filename)

		s := report.Summary
		assert.Equal(t, 2, s.DocumentsProcessed)
		assert.Equal(t, 3, s.TotalRows)
		assert.Equal(t, 2, s.TotalValidRows)
		assert.Equal(t, 1, s.TotalErrors)
		assert.Equal(t, 2, s.TotalWarnings)
		assert.InDelta(t, (report.Results[0].ConfidenceScore+report.Results[1].ConfidenceScore)/2, s.AvgConfidence, 0.006)

		// doc2 never reaches pending_review and stays fetchable.
		d.store.AssertNotCalled(t, "SetMetadata", mock.Anything, "doc2.csv", mock.Anything)
		d.queue.AssertNumberOfCalls(t, "Put", 2)
		d.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		d.notifier.AssertCalled(t, "NotifyReviewReady", mock.Anything, report)
	}
}

func TestRunBatch_AllFailedIsDistinctFromIdle(t *testing.T) {
	o, d := newOrchestrator(1)
	d.store.On("ListPending", mock.Anything).Return(pending("a.csv"), nil)
	d.queue.On("Get", mock.Anything, "a.csv").Return(nil, domain.ErrReviewNotFound)
	d.store.On("MarkProcessing", mock.Anything, "a.csv", mock.Anything).Return(nil)
	d.store.On("Download", mock.Anything, "a.csv", mock.Anything).Return(domain.ErrNotFound)

	report, err := o.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusError, report.Status)
	assert.Equal(t, []string{"a.csv"}, report.Failed)
	assert.Empty(t, report.Results)
	assert.Equal(t, domain.BatchSummary{}, report.Summary)
	d.notifier.AssertNotCalled(t, "NotifyReviewReady", mock.Anything, mock.Anything)
}

func TestRunBatch_RespectsBatchSize(t *testing.T) {
	o, d := newOrchestrator(1)
	d.store.On("ListPending", mock.Anything).Return(pending("a.csv", "b.csv", "c.csv"), nil)
	d.expectHappyPath("a.csv", "b.csv")
	d.extractor.On("Extract", mock.Anything, mock.Anything).Return(goodRows(), nil)
	d.notifier.On("NotifyReviewReady", mock.Anything, mock.Anything).Return(nil)

	report, err := o.RunBatch(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, report.Results, 2)
	d.store.AssertNotCalled(t, "MarkProcessing", mock.Anything, "c.csv", mock.Anything)
}

func TestRunBatch_QueuedEntryAndMarkers(t *testing.T) {
	o, d := newOrchestrator(1)
	d.store.On("ListPending", mock.Anything).Return(pending("avfall_rapport.csv"), nil)
	d.expectHappyPath("avfall_rapport.csv")
	d.extractor.On("Extract", mock.Anything, forFile("avfall_rapport.csv")).Return(goodRows(), nil)
	d.notifier.On("NotifyReviewReady", mock.Anything, mock.Anything).Return(nil)

	report, err := o.RunBatch(context.Background(), 10)
	require.NoError(t, err)

	put := d.queue.Calls[len(d.queue.Calls)-1].Arguments.Get(1).(*domain.ReviewEntry)
	assert.Equal(t, domain.DocumentStatusPendingReview, put.Status)
	assert.Equal(t, "avfall_rapport.csv", put.DocumentID)
	assert.Equal(t, domain.LanguageSwedish, put.Language)
	assert.Equal(t, 2, put.TotalRows)
	assert.Equal(t, 1, put.ValidRows)

	var meta map[string]string
	for _, c := range d.store.Calls {
		if c.Method == "SetMetadata" {
			meta = c.Arguments.Get(2).(map[string]string)
		}
	}
	require.NotNil(t, meta)
	assert.Equal(t, "pending_review", meta[domain.MetaStatus])
	assert.Equal(t, report.BatchID, meta[domain.MetaBatchID])
	assert.Equal(t, "avfall_rapport.csv", meta[domain.MetaDocumentID])
}

func TestRunBatch_EmptyExtractionYieldsZeroResult(t *testing.T) {
	o, d := newOrchestrator(1)
	d.store.On("ListPending", mock.Anything).Return(pending("scan.csv"), nil)
	d.expectHappyPath("scan.csv")
	d.extractor.On("Extract", mock.Anything, mock.Anything).Return([]domain.RawRow{}, nil)
	d.notifier.On("NotifyReviewReady", mock.Anything, mock.Anything).Return(nil)

	report, err := o.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, 0, res.ValidRows)
	assert.Equal(t, 0.0, res.ConfidenceScore)
	assert.Empty(t, res.Issues)
	assert.Contains(t, res.Summary, "- Note: No rows could be extracted")
	assert.Equal(t, 0, report.Summary.TotalErrors)
}

func TestRunBatch_UnreadableDocumentSkipsExtraction(t *testing.T) {
	store := new(mocks.MockDocumentStore)
	extractor := new(mocks.MockRowExtractor)
	decoder := new(mocks.MockDocumentDecoder)
	queue := new(mocks.MockReviewQueue)
	o := service.NewOrchestrator(store, extractor, decoder, queue, nil, nil, service.OrchestratorConfig{}, nil)

	store.On("ListPending", mock.Anything).Return(pending("legacy.xls"), nil)
	queue.On("Get", mock.Anything, "legacy.xls").Return(nil, domain.ErrReviewNotFound)
	store.On("MarkProcessing", mock.Anything, "legacy.xls", mock.Anything).Return(nil)
	store.On("Download", mock.Anything, "legacy.xls", mock.Anything).Return(nil, "\xd0\xcf\x11\xe0")
	decoder.On("Text", "legacy.xls", []byte("\xd0\xcf\x11\xe0")).Return("", domain.ErrUnsupportedFileType)
	queue.On("Put", mock.Anything, mock.Anything).Return(nil)
	store.On("SetMetadata", mock.Anything, "legacy.xls", mock.Anything).Return(nil)

	report, err := o.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Empty(t, report.Results[0].Issues)
	assert.Contains(t, report.Results[0].Summary, "unsupported file type")
	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestRunBatch_MarkerFailureAfterQueueStillCounts(t *testing.T) {
	o, d := newOrchestrator(1)
	d.store.On("ListPending", mock.Anything).Return(pending("a.csv"), nil)
	d.queue.On("Get", mock.Anything, "a.csv").Return(nil, domain.ErrReviewNotFound)
	d.store.On("MarkProcessing", mock.Anything, "a.csv", mock.Anything).Return(nil)
	d.store.On("Download", mock.Anything, "a.csv", mock.Anything).Return(nil, "weight")
	d.store.On("SetMetadata", mock.Anything, "a.csv", mock.Anything).Return(errors.New("throttled"))
	d.queue.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.extractor.On("Extract", mock.Anything, mock.Anything).Return(goodRows(), nil)
	d.notifier.On("NotifyReviewReady", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	report, err := o.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, report.Results, 1)
	assert.Empty(t, report.Failed)
}

func TestRunBatch_RecoversPendingReviewMarker(t *testing.T) {
	o, d := newOrchestrator(1)
	doc := pending("a.csv")
	d.store.On("ListPending", mock.Anything).Return(doc, nil)
	d.queue.On("Get", mock.Anything, "a.csv").Return(&domain.ReviewEntry{
		ExtractionResult: domain.ExtractionResult{DocumentID: "a.csv", Filename: "a.csv", ProcessedAt: doc[0].ModifiedAt.Add(time.Minute)},
		Status:           domain.DocumentStatusPendingReview,
	}, nil)
	d.store.On("SetMetadata", mock.Anything, "a.csv", mock.MatchedBy(func(m map[string]string) bool {
		return m[domain.MetaStatus] == "pending_review"
	})).Return(nil)

	report, err := o.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Empty(t, report.Failed)
	d.store.AssertNotCalled(t, "MarkProcessing", mock.Anything, mock.Anything, mock.Anything)
	d.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestRunBatch_RecoversUnfinishedApproval(t *testing.T) {
	o, d := newOrchestrator(1)
	doc := pending("a.csv")
	d.store.On("ListPending", mock.Anything).Return(doc, nil)
	d.queue.On("Get", mock.Anything, "a.csv").Return(&domain.ReviewEntry{
		ExtractionResult: domain.ExtractionResult{Filename: "a.csv", ProcessedAt: doc[0].ModifiedAt.Add(time.Minute)},
		Status:           domain.DocumentStatusApproved,
	}, nil)
	d.store.On("Delete", mock.Anything, "a.csv").Return(nil)

	_, err := o.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	d.store.AssertCalled(t, "Delete", mock.Anything, "a.csv")
}

func TestRunBatch_StaleEntryForReuploadedNameIsReprocessed(t *testing.T) {
	o, d := newOrchestrator(1)
	doc := pending("a.csv")
	d.store.On("ListPending", mock.Anything).Return(doc, nil)
	d.queue.On("Get", mock.Anything, "a.csv").Return(&domain.ReviewEntry{
		ExtractionResult: domain.ExtractionResult{Filename: "a.csv", ProcessedAt: doc[0].ModifiedAt.Add(-24 * time.Hour)},
		Status:           domain.DocumentStatusApproved,
	}, nil)
	d.store.On("MarkProcessing", mock.Anything, "a.csv", mock.Anything).Return(nil)
	d.store.On("Download", mock.Anything, "a.csv", mock.Anything).Return(nil, "weight")
	d.store.On("SetMetadata", mock.Anything, "a.csv", mock.Anything).Return(nil)
	d.queue.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.extractor.On("Extract", mock.Anything, mock.Anything).Return(goodRows(), nil)
	d.notifier.On("NotifyReviewReady", mock.Anything, mock.Anything).Return(nil)

	report, err := o.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, report.Results, 1)
	d.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRunBatch_EntryForAnotherFilenameIsNotRecovered(t *testing.T) {
	o, d := newOrchestrator(1)
	doc := pending("a_b.txt")
	d.store.On("ListPending", mock.Anything).Return(doc, nil)
	d.queue.On("Get", mock.Anything, "a_b.txt").Return(&domain.ReviewEntry{
		ExtractionResult: domain.ExtractionResult{Filename: "a b.txt", ProcessedAt: doc[0].ModifiedAt.Add(time.Hour)},
		Status:           domain.DocumentStatusPendingReview,
	}, nil)
	d.store.On("MarkProcessing", mock.Anything, "a_b.txt", mock.Anything).Return(nil)
	d.store.On("Download", mock.Anything, "a_b.txt", mock.Anything).Return(nil, "weight;address")
	d.store.On("SetMetadata", mock.Anything, "a_b.txt", mock.Anything).Return(nil)
	d.queue.On("Put", mock.Anything, mock.MatchedBy(func(e *domain.ReviewEntry) bool {
		return e.Filename == "a_b.txt"
	})).Return(nil)
	d.extractor.On("Extract", mock.Anything, forFile("a_b.txt")).Return(goodRows(), nil)
	d.notifier.On("NotifyReviewReady", mock.Anything, mock.Anything).Return(nil)

	report, err := o.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "a_b.txt", report.Results[0].Filename)
	d.store.AssertCalled(t, "MarkProcessing", mock.Anything, "a_b.txt", mock.Anything)
}

func TestRunBatch_SimilarNamesGetSeparateReviews(t *testing.T) {
	store, err := fsstore.New(fsstore.Config{BaseDir: t.TempDir(), Processor: "test"}, nil)
	require.NoError(t, err)
	queue, err := reviewfs.New(t.TempDir(), nil)
	require.NoError(t, err)
	extractor := new(mocks.MockRowExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).Return(goodRows(), nil)

	hourAgo := time.Now().Add(-time.Hour)
	for _, name := range []string{"a b.txt", "a_b.txt"} {
		path := filepath.Join(store.SourceDir(), name)
		require.NoError(t, os.WriteFile(path, []byte("weight;address\n2.5 ton;Storgatan 12"), 0o644))
		require.NoError(t, os.Chtimes(path, hourAgo, hourAgo))
	}

	o := service.NewOrchestrator(store, extractor, preview.NewDecoder(nil), queue, nil, nil, service.OrchestratorConfig{}, nil)
	report, err := o.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	extractor.AssertNumberOfCalls(t, "Extract", 2)

	entries, err := queue.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	byFile := map[string]string{}
	for _, e := range entries {
		byFile[e.Filename] = e.DocumentID
	}
	require.Contains(t, byFile, "a b.txt")
	require.Contains(t, byFile, "a_b.txt")
	assert.NotEqual(t, byFile["a b.txt"], byFile["a_b.txt"])

	for name, id := range byFile {
		got, err := queue.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, name, got.Filename)
		meta, err := store.Metadata(name)
		require.NoError(t, err)
		assert.Equal(t, string(domain.DocumentStatusPendingReview), meta[domain.MetaStatus], name)
	}
}

func TestRunBatch_InvalidStatusNotProcessed(t *testing.T) {
	o, d := newOrchestrator(1)
	doc := pending("a.csv")
	doc[0].Status = domain.DocumentStatusRejected
	d.store.On("ListPending", mock.Anything).Return(doc, nil)
	d.queue.On("Get", mock.Anything, "a.csv").Return(nil, domain.ErrReviewNotFound)

	report, err := o.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv"}, report.Failed)
	d.store.AssertNotCalled(t, "MarkProcessing", mock.Anything, mock.Anything, mock.Anything)
}

// blockingExtractor holds every call until release is closed.
type blockingExtractor struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingExtractor) Extract(ctx context.Context, _ port.ExtractInput) ([]domain.RawRow, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return goodRows(), ctx.Err()
}

func TestRunBatch_CancelLetsInFlightDocumentFinish(t *testing.T) {
	store := new(mocks.MockDocumentStore)
	queue := new(mocks.MockReviewQueue)
	ext := &blockingExtractor{started: make(chan struct{}), release: make(chan struct{})}
	o := service.NewOrchestrator(store, ext, preview.NewDecoder(nil), queue, nil, nil, service.OrchestratorConfig{Concurrency: 1}, nil)

	store.On("ListPending", mock.Anything).Return(pending("a.csv", "b.csv"), nil)
	queue.On("Get", mock.Anything, "a.csv").Return(nil, domain.ErrReviewNotFound)
	store.On("MarkProcessing", mock.Anything, "a.csv", mock.Anything).Return(nil)
	store.On("Download", mock.Anything, "a.csv", mock.Anything).Return(nil, "weight")
	store.On("SetMetadata", mock.Anything, "a.csv", mock.Anything).Return(nil)
	queue.On("Put", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *domain.BatchReport, 1)
	go func() {
		report, err := o.RunBatch(ctx, 10)
		assert.NoError(t, err)
		done <- report
	}()

	<-ext.started
	cancel()
	close(ext.release)

	select {
	case report := <-done:
		require.Len(t, report.Results, 1)
		assert.Equal(t, "a.csv", report.Results[0].Filename)
		store.AssertNotCalled(t, "MarkProcessing", mock.Anything, "b.csv", mock.Anything)
	case <-time.After(5 * time.Second):
		t.Fatal("RunBatch did not return")
	}
}

func TestRunBatch_CancelledBeforeStartDispatchesNothing(t *testing.T) {
	for i := 0; i < 50; i++ {
		o, d := newOrchestrator(2)
		d.store.On("ListPending", mock.Anything).Return(pending("a.csv", "b.csv"), nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		report, err := o.RunBatch(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, report.Results)
		assert.Empty(t, report.Failed)
		d.queue.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		d.store.AssertNotCalled(t, "MarkProcessing", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, domain.BatchSummary{}, service.Summarize(nil))

	s := service.Summarize([]domain.ExtractionResult{
		{TotalRows: 3, ValidRows: 2, ConfidenceScore: 0.8, ProcessingTime: 1.25,
			Issues: []domain.ValidationIssue{{Severity: domain.SeverityError}, {Severity: domain.SeverityWarning}}},
		{TotalRows: 1, ValidRows: 1, ConfidenceScore: 0.6, ProcessingTime: 0.5},
	})
	assert.Equal(t, domain.BatchSummary{
		DocumentsProcessed:  2,
		TotalRows:           4,
		TotalValidRows:      3,
		TotalErrors:         1,
		TotalWarnings:       1,
		AvgConfidence:       0.7,
		TotalProcessingTime: 1.75,
	}, s)
}
