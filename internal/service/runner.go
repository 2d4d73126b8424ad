package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wasterescue/internal/domain"
	"wasterescue/internal/logging"
)

// Runner drives the Orchestrator on a fixed interval until its context is
// canceled. An optional trigger channel starts the next cycle early.
type Runner struct {
	orchestrator Orchestrator
	trigger      <-chan struct{}
	logger       *slog.Logger
}

// NewRunner creates a Runner. trigger may be nil.
func NewRunner(orchestrator Orchestrator, trigger <-chan struct{}, logger *slog.Logger) *Runner {
	return &Runner{
		orchestrator: orchestrator,
		trigger:      trigger,
		logger:       logging.OrDefault(logger).With("component", "runner"),
	}
}

// RunForever runs a cycle, then waits for interval, a trigger or cancellation.
// Cycle errors are logged and never stop the loop. Cancellation is honoured
// between cycles; a cycle in progress finishes its in-flight documents.
func (r *Runner) RunForever(ctx context.Context, interval time.Duration, batchSize int) {
	r.logger.Info("runner started", "interval", interval.String(), "batch_size", batchSize)

	for {
		if ctx.Err() != nil {
			break
		}
		r.RunOnce(ctx, batchSize)
		if ctx.Err() != nil {
			break
		}

		wait := time.NewTimer(interval)
		select {
		case <-ctx.Done():
		case <-wait.C:
		case <-r.trigger:
			r.logger.Debug("cycle triggered early")
		}
		wait.Stop()
	}
	r.logger.Info("runner stopped")
}

// RunOnce runs a single cycle and reports its outcome class. Panics inside
// the cycle are recovered and reported as errors.
func (r *Runner) RunOnce(ctx context.Context, batchSize int) (status domain.BatchStatus) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("batch cycle panicked", "panic", fmt.Sprint(p))
			status = domain.BatchStatusError
		}
	}()

	report, err := r.orchestrator.RunBatch(ctx, batchSize)
	switch {
	case errors.Is(err, domain.ErrNoDocuments):
		r.logger.Info("no documents to process")
		return domain.BatchStatusNoFiles
	case err != nil:
		r.logger.Error("batch cycle failed", "error", err)
		return domain.BatchStatusError
	}

	r.logger.Info("batch cycle complete",
		"batch_id", report.BatchID,
		"status", report.Status,
		"documents", report.Summary.DocumentsProcessed,
		"failed", len(report.Failed),
		"valid_rows", report.Summary.TotalValidRows,
		"avg_confidence", report.Summary.AvgConfidence,
	)
	return report.Status
}
