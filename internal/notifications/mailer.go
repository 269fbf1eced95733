package notifications

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/aspire-webinars/backend/config"
)

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender sends mail over SMTP with plain auth.
type SMTPSender struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg config.EmailConfig, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{cfg: cfg, logger: logger}
}

// Send delivers one HTML email.
func (s *SMTPSender) Send(_ context.Context, to, subject, htmlBody string) error {
	if s.cfg.SMTPHost == "" {
		return fmt.Errorf("smtp not configured")
	}

	from := s.cfg.FromAddress
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.cfg.FromName, from, to, subject, htmlBody,
	)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg)); err != nil {
		s.logger.Warn("smtp send failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("send email: %w", err)
	}
	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
