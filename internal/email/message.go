// Package email renders reviewer notifications. Senders live in the ses and
// noop subpackages.
package email

import (
	"fmt"
	"html"
	"strings"

	"wasterescue/internal/domain"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// ReviewReady renders the notification sent after a batch produced results.
func ReviewReady(report *domain.BatchReport, dashboardURL string) Message {
	s := report.Summary
	reviewURL := strings.TrimRight(dashboardURL, "/") + "/reviews?status=pending_review"

	subject := fmt.Sprintf("%d document(s) ready for review", s.DocumentsProcessed)

	var text strings.Builder
	fmt.Fprintf(&text, "Batch %s finished.\n\n", report.BatchID)
	fmt.Fprintf(&text, "Documents: %d\nRows: %d (%d valid)\nErrors: %d\nWarnings: %d\nAverage confidence: %.2f\n",
		s.DocumentsProcessed, s.TotalRows, s.TotalValidRows, s.TotalErrors, s.TotalWarnings, s.AvgConfidence)
	if len(report.Failed) > 0 {
		fmt.Fprintf(&text, "\nNot processed (will be retried): %s\n", strings.Join(report.Failed, ", "))
	}
	fmt.Fprintf(&text, "\nReview them at:\n%s\n", reviewURL)

	var items strings.Builder
	for i := range report.Results {
		r := &report.Results[i]
		fmt.Fprintf(&items, "    <li>%s: %d/%d valid rows, confidence %.2f</li>\n",
			html.EscapeString(r.Filename), r.ValidRows, r.TotalRows, r.ConfidenceScore)
	}

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">%s</h2>
  <ul>
%s  </ul>
  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #2E7D32; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Open review queue</a>
  </p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">Waste Rescue - failed document recovery</p>
</body>
</html>`, html.EscapeString(subject), items.String(), html.EscapeString(reviewURL))

	return Message{Subject: subject, Text: text.String(), HTML: body}
}
