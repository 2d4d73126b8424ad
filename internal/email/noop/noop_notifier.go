package noop

import (
	"context"
	"log/slog"

	"wasterescue/internal/domain"
	"wasterescue/internal/email"
	"wasterescue/internal/logging"
	"wasterescue/internal/port"
)

type noopNotifier struct {
	dashboardURL string
	logger       *slog.Logger
}

// NewNoopNotifier creates a ReviewNotifier that only logs the notification.
func NewNoopNotifier(dashboardURL string, logger *slog.Logger) port.ReviewNotifier {
	return &noopNotifier{
		dashboardURL: dashboardURL,
		logger:       logging.OrDefault(logger).With("component", "email.noop"),
	}
}

func (n *noopNotifier) NotifyReviewReady(_ context.Context, report *domain.BatchReport) error {
	msg := email.ReviewReady(report, n.dashboardURL)
	n.logger.Info("[NOOP EMAIL] review notification", "subject", msg.Subject, "batch_id", report.BatchID)
	return nil
}
