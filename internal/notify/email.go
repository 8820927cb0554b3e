package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/vistav/site-api/internal/models"
)

// EmailNotifier sends each accepted lead to the office mailbox via AWS SES.
type EmailNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewEmailNotifier creates an SES backed notifier.
func NewEmailNotifier(ctx context.Context, region, fromAddress, toAddress string, logger *slog.Logger) (*EmailNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &EmailNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}, nil
}

// Channel names this notifier in logs and metrics.
func (n *EmailNotifier) Channel() string { return "email" }

// NotifyLead mails the lead summary to the office.
func (n *EmailNotifier) NotifyLead(ctx context.Context, lead models.Lead) error {
	subject := fmt.Sprintf("Nová poptávka: %s", label(serviceLabels, lead.Service))

	var rows strings.Builder
	for _, line := range leadSummaryLines(lead) {
		k, v, _ := strings.Cut(line, ": ")
		rows.WriteString(fmt.Sprintf("<tr><td><strong>%s</strong></td><td>%s</td></tr>\n",
			html.EscapeString(k), html.EscapeString(v)))
	}
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Nová poptávka z webu</h2>
  <table cellpadding="6" border="0">
%s  </table>
</body>
</html>
`, rows.String())

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String("Nová poptávka z webu\n\n" + leadSummaryText(lead) + "\n"),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send lead email: %w", err)
	}

	n.logger.Info("lead mailed to office",
		slog.String("lead_id", lead.ID),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}
