package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/idxflow/backend/src/config"
	"github.com/username/idxflow/backend/src/logger"
	"github.com/username/idxflow/backend/src/models"
)

func NewEmailService() EmailService {
	if config.Cfg == nil {
		slog.Error("Configuration (config.Cfg) is nil. Email service will default to mock.")
		return &MockEmailService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.AlertEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or AlertEmail missing). Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
			alertEmail:  config.Cfg.AlertEmail,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{}
	}
}

type MailgunEmailService struct {
	mg          *mailgun.MailgunImpl
	senderEmail string
	senderName  string
	alertEmail  string
}

func (s *MailgunEmailService) SendRunAlert(report *models.RunReport) error {
	subject := fmt.Sprintf("[idxflow] aggregation run %q finished with failures", report.Kind)
	body := formatRunAlert(report)
	sender := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)

	message := mailgun.NewMessage(sender, subject, body, s.alertEmail)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, id, err := s.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send run alert via mailgun: %w", err)
	}
	logger.L.Info("Run alert sent", "kind", report.Kind, "messageID", id)
	return nil
}

type MockEmailService struct{}

func (s *MockEmailService) SendRunAlert(report *models.RunReport) error {
	logger.L.Info("MOCK run alert",
		"kind", report.Kind,
		"failed", report.FilesFailed,
		"message", report.Message)
	return nil
}

func formatRunAlert(report *models.RunReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Aggregation kind: %s\n", report.Kind)
	fmt.Fprintf(&sb, "Started: %s\nFinished: %s\n", report.StartedAt.Format(time.RFC3339), report.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Discovered %d, processed %d, succeeded %d, skipped %d, failed %d.\n",
		report.FilesDiscovered, report.FilesProcessed, report.FilesSucceeded, report.FilesSkipped, report.FilesFailed)
	if report.Message != "" {
		fmt.Fprintf(&sb, "Message: %s\n", report.Message)
	}
	for _, outcome := range report.Outcomes {
		if !outcome.Success && !outcome.Skipped {
			fmt.Fprintf(&sb, "FAILED %s: %s\n", outcome.Path, outcome.Reason)
		}
	}
	return sb.String()
}
