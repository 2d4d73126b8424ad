package ses

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"wasterescue/internal/config"
	"wasterescue/internal/domain"
	"wasterescue/internal/email"
	"wasterescue/internal/logging"
	"wasterescue/internal/port"
)

// SendEmailAPI is the part of the SESv2 client the notifier uses.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesNotifier struct {
	client       SendEmailAPI
	fromAddress  string
	fromName     string
	to           string
	dashboardURL string
	logger       *slog.Logger
}

// NewSESNotifier creates a new SES-backed ReviewNotifier.
func NewSESNotifier(ctx context.Context, cfg *config.EmailConfig, logger *slog.Logger) (port.ReviewNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewWithClient(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

// NewWithClient wraps an existing SES client.
func NewWithClient(client SendEmailAPI, cfg *config.EmailConfig, logger *slog.Logger) port.ReviewNotifier {
	return &sesNotifier{
		client:       client,
		fromAddress:  cfg.FromAddress,
		fromName:     cfg.FromName,
		to:           cfg.ReviewerAddress,
		dashboardURL: cfg.DashboardURL,
		logger:       logging.OrDefault(logger).With("component", "email.ses"),
	}
}

func (s *sesNotifier) NotifyReviewReady(ctx context.Context, report *domain.BatchReport) error {
	if s.to == "" {
		s.logger.Debug("no reviewer address configured, skipping notification")
		return nil
	}
	msg := email.ReviewReady(report, s.dashboardURL)
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{s.to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &msg.Subject},
				Body: &types.Body{
					Html: &types.Content{Data: &msg.HTML},
					Text: &types.Content{Data: &msg.Text},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	s.logger.Info("review notification sent", "to", s.to, "batch_id", report.BatchID)
	return nil
}
