package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"wasterescue/internal/domain"
	"wasterescue/internal/extraction"
	"wasterescue/internal/logging"
	"wasterescue/internal/port"
	"wasterescue/internal/result"
	"wasterescue/internal/scoring"
	"wasterescue/internal/validator"
)

const defaultDocumentTimeout = 5 * time.Minute

// OrchestratorConfig holds batch processing settings.
type OrchestratorConfig struct {
	// Concurrency bounds how many documents of one batch are in flight.
	Concurrency int
	// DocumentTimeout bounds the work on a single document.
	DocumentTimeout time.Duration
}

// Orchestrator runs one extraction cycle over pending documents.
type Orchestrator interface {
	// RunBatch processes up to batchSize pending documents (all of them when
	// batchSize <= 0). Returns domain.ErrNoDocuments when nothing is pending.
	RunBatch(ctx context.Context, batchSize int) (*domain.BatchReport, error)
}

type orchestrator struct {
	store     port.DocumentStore
	extractor port.RowExtractor
	decoder   port.DocumentDecoder
	queue     port.ReviewQueue
	notifier  port.ReviewNotifier
	locks     *KeyLock
	cfg       OrchestratorConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrchestrator creates a new Orchestrator. notifier may be nil.
func NewOrchestrator(
	store port.DocumentStore,
	extractor port.RowExtractor,
	decoder port.DocumentDecoder,
	queue port.ReviewQueue,
	notifier port.ReviewNotifier,
	locks *KeyLock,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.DocumentTimeout <= 0 {
		cfg.DocumentTimeout = defaultDocumentTimeout
	}
	if locks == nil {
		locks = NewKeyLock()
	}
	return &orchestrator{
		store:     store,
		extractor: extractor,
		decoder:   decoder,
		queue:     queue,
		notifier:  notifier,
		locks:     locks,
		cfg:       cfg,
		logger:    logging.OrDefault(logger).With("component", "orchestrator"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (o *orchestrator) RunBatch(ctx context.Context, batchSize int) (*domain.BatchReport, error) {
	start := time.Now()

	docs, err := o.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator.RunBatch: listing documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrNoDocuments
	}
	if batchSize > 0 && len(docs) > batchSize {
		docs = docs[:batchSize]
	}

	batchID := uuid.NewString()
	log := o.logger.With("batch_id", batchID)
	log.Info("batch started", "documents", len(docs), "concurrency", o.cfg.Concurrency)

	// Slots keep results in listing order regardless of completion order.
	produced := make([]*domain.ExtractionResult, len(docs))
	errs := make([]error, len(docs))

	sem := make(chan struct{}, o.cfg.Concurrency)
	var wg sync.WaitGroup
	dispatched := 0
dispatch:
	for i := range docs {
		// Cancellation stops new documents from starting; in-flight ones finish.
		// select picks randomly when both cases are ready, so check first.
		if ctx.Err() != nil {
			break dispatch
		}
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		dispatched++

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			docCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.DocumentTimeout)
			defer cancel()
			produced[i], errs[i] = o.processDocument(docCtx, batchID, &docs[i])
		}(i)
	}
	wg.Wait()

	report := &domain.BatchReport{
		BatchID: batchID,
		Results: []domain.ExtractionResult{},
	}
	for i := range docs[:dispatched] {
		if errs[i] != nil {
			log.Error("document failed, left for retry", "name", docs[i].Name, "error", errs[i])
			report.Failed = append(report.Failed, docs[i].Name)
			continue
		}
		if produced[i] != nil {
			report.Results = append(report.Results, *produced[i])
		}
	}
	report.Summary = Summarize(report.Results)
	report.Duration = math.Round(time.Since(start).Seconds()*1000) / 1000

	report.Status = domain.BatchStatusSuccess
	if len(report.Results) == 0 && len(report.Failed) > 0 {
		report.Status = domain.BatchStatusError
	}

	log.Info("batch finished",
		"status", report.Status,
		"processed", report.Summary.DocumentsProcessed,
		"failed", len(report.Failed),
		"avg_confidence", report.Summary.AvgConfidence,
		"duration_s", report.Duration,
	)

	if len(report.Results) > 0 && o.notifier != nil {
		if err := o.notifier.NotifyReviewReady(ctx, report); err != nil {
			log.Warn("reviewer notification failed", "error", err)
		}
	}
	return report, nil
}

// processDocument moves one document from failed to pending_review. A nil
// result with a nil error means the document needed no new extraction.
func (o *orchestrator) processDocument(ctx context.Context, batchID string, doc *domain.DocumentRecord) (*domain.ExtractionResult, error) {
	unlock := o.locks.Lock(doc.Name)
	defer unlock()

	log := o.logger.With("batch_id", batchID, "name", doc.Name)
	docID := domain.DocumentID(doc.Name)

	recovered, err := o.recover(ctx, doc, docID)
	if err != nil || recovered {
		return nil, err
	}

	if !domain.CanTransition(doc.Status, domain.DocumentStatusProcessing) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, doc.Status, domain.DocumentStatusProcessing)
	}
	if err := o.store.MarkProcessing(ctx, doc.Name, batchID); err != nil {
		return nil, fmt.Errorf("marking processing: %w", err)
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := o.store.Download(ctx, doc.Name, &buf); err != nil {
		return nil, fmt.Errorf("downloading: %w", err)
	}

	language := extraction.DetectLanguage(doc.Name)
	var (
		raw          []domain.RawRow
		noRowsReason string
	)
	text, err := o.decoder.Text(doc.Name, buf.Bytes())
	if err != nil {
		log.Warn("document preview failed, recording empty result", "error", err)
		noRowsReason = fmt.Sprintf("Could not read document content: %v", err)
	} else {
		raw, err = o.extractor.Extract(ctx, port.ExtractInput{
			Filename:    doc.Name,
			ContentType: doc.ContentType,
			Text:        text,
			Language:    language,
		})
		if err != nil {
			return nil, fmt.Errorf("extracting: %w", err)
		}
	}

	rows, issues := validator.Validate(raw)
	res := result.Build(result.BuildInput{
		DocumentID:   docID,
		Filename:     doc.Name,
		Language:     language,
		RawRowCount:  len(raw),
		Rows:         rows,
		Issues:       issues,
		Elapsed:      time.Since(start),
		ProcessedAt:  o.now(),
		NoRowsReason: noRowsReason,
	})

	entry := &domain.ReviewEntry{ExtractionResult: *res, Status: domain.DocumentStatusPendingReview}
	if err := o.queue.Put(ctx, entry); err != nil {
		return nil, fmt.Errorf("queueing for review: %w", err)
	}

	// The queued result is the durable transition; a failed marker is
	// repaired by the next cycle.
	if err := o.store.SetMetadata(ctx, doc.Name, o.pendingReviewMeta(batchID, res)); err != nil {
		log.Warn("pending_review marker not written", "error", err)
	}

	log.Info("document queued for review",
		"total_rows", res.TotalRows,
		"valid_rows", res.ValidRows,
		"confidence", res.ConfidenceScore,
	)
	return res, nil
}

// recover repairs documents whose review entry outlived a missing store
// marker. Entries older than the document itself belong to an earlier upload
// of the same name and are ignored.
func (o *orchestrator) recover(ctx context.Context, doc *domain.DocumentRecord, docID string) (bool, error) {
	entry, err := o.queue.Get(ctx, docID)
	if err != nil {
		if errors.Is(err, domain.ErrReviewNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("checking review queue: %w", err)
	}
	if entry.Filename != doc.Name {
		o.logger.Warn("review entry belongs to another document, reprocessing",
			"name", doc.Name, "document_id", docID, "entry_filename", entry.Filename)
		return false, nil
	}
	if doc.ModifiedAt.After(entry.ProcessedAt) {
		return false, nil
	}

	log := o.logger.With("name", doc.Name, "review_status", entry.Status)
	switch entry.Status {
	case domain.DocumentStatusPendingReview:
		if err := o.store.SetMetadata(ctx, doc.Name, o.pendingReviewMeta("", &entry.ExtractionResult)); err != nil {
			return false, fmt.Errorf("restoring pending_review marker: %w", err)
		}
	case domain.DocumentStatusRejected:
		if err := o.store.SetMetadata(ctx, doc.Name, rejectionMeta(entry)); err != nil {
			return false, fmt.Errorf("restoring rejection marker: %w", err)
		}
	case domain.DocumentStatusApproved:
		if err := o.store.Delete(ctx, doc.Name); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("finishing approval: %w", err)
		}
	case domain.DocumentStatusFailed, domain.DocumentStatusProcessing:
		return false, nil
	default:
		return false, nil
	}
	log.Info("recovered document state from review queue")
	return true, nil
}

func (o *orchestrator) pendingReviewMeta(batchID string, res *domain.ExtractionResult) map[string]string {
	meta := map[string]string{
		domain.MetaStatus:     string(domain.DocumentStatusPendingReview),
		domain.MetaDocumentID: res.DocumentID,
		domain.MetaConfidence: strconv.FormatFloat(res.ConfidenceScore, 'f', 2, 64),
		domain.MetaTimestamp:  o.now().Format(time.RFC3339Nano),
	}
	if batchID != "" {
		meta[domain.MetaBatchID] = batchID
	}
	return meta
}

// Summarize aggregates produced results. Documents that failed are not part of it.
func Summarize(results []domain.ExtractionResult) domain.BatchSummary {
	var s domain.BatchSummary
	if len(results) == 0 {
		return s
	}
	var confidence float64
	for i := range results {
		r := &results[i]
		s.TotalRows += r.TotalRows
		s.TotalValidRows += r.ValidRows
		s.TotalErrors += r.CountSeverity(domain.SeverityError)
		s.TotalWarnings += r.CountSeverity(domain.SeverityWarning)
		s.TotalProcessingTime += r.ProcessingTime
		confidence += r.ConfidenceScore
	}
	s.DocumentsProcessed = len(results)
	s.AvgConfidence = scoring.Round2(confidence / float64(len(results)))
	s.TotalProcessingTime = math.Round(s.TotalProcessingTime*1000) / 1000
	return s
}
