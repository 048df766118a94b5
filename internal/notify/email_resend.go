package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/royscompany/royscompany-api/pkg/logging"
)

type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	emails    resendEmails
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// ResendConfig holds configuration for Resend.
type ResendConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewResendSender creates a Resend sender, or nil without an API key.
func NewResendSender(cfg ResendConfig, logger *logging.Logger) *ResendSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &ResendSender{
		emails:    resend.NewClient(cfg.APIKey).Emails,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send sends an email via Resend.
func (s *ResendSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.emails == nil {
		return fmt.Errorf("notify: resend client not configured")
	}
	if msg.HTML == "" && msg.Body == "" {
		return fmt.Errorf("notify: email must have an HTML or text body")
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", firstNonEmpty(msg.FromName, s.fromName), s.fromEmail),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Body,
		ReplyTo: msg.ReplyTo,
	}

	sent, err := s.emails.SendWithContext(ctx, params)
	if err != nil {
		s.logger.Error("resend send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: resend send failed: %w", err)
	}

	s.logger.Info("email sent via resend", "to", msg.To, "subject", msg.Subject, "id", sent.Id)
	return nil
}

var _ EmailSender = (*ResendSender)(nil)
