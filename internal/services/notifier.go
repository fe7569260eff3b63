package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hwainwright/gatefold/internal/models"
	pkglogger "github.com/hwainwright/gatefold/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAlertNotifier emails high and critical alerts to the on-duty operator
// address using AWS SES.
type SESAlertNotifier struct {
	sesClient       *ses.Client
	fromAddress     string
	operatorAddress string
	logger          *slog.Logger
}

// NewSESAlertNotifier creates a new SES-backed alert notifier
func NewSESAlertNotifier(region, fromAddress, operatorAddress string, logger *slog.Logger) (*SESAlertNotifier, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESAlertNotifier{
		sesClient:       ses.NewFromConfig(cfg),
		fromAddress:     fromAddress,
		operatorAddress: operatorAddress,
		logger:          logger,
	}, nil
}

// NotifyAlert sends a plain-text summary of the alert. The forensic payload
// stays in the database; the email only carries enough to triage.
func (n *SESAlertNotifier) NotifyAlert(ctx context.Context, alert *models.SuspiciousAlert) error {
	subject := fmt.Sprintf("[%s] %s for subscriber %s", alert.Severity, alert.AlertType, alert.SubscriberID)

	textBody := fmt.Sprintf(`Suspicious activity detected.

Type:        %s
Severity:    %s
Subscriber:  %s
Token:       %s
Detected at: %s

%s

Review and resolve this alert in the monitoring console.
`,
		alert.AlertType,
		alert.Severity,
		alert.SubscriberID,
		pkglogger.TruncatedToken(alert.Token),
		alert.CreatedAt.Format(time.RFC3339),
		alert.Description,
	)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.operatorAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	if _, err := n.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	n.logger.InfoContext(ctx, "alert notification sent",
		slog.String("alert_id", alert.ID.String()),
		slog.String("severity", alert.Severity),
	)

	return nil
}
