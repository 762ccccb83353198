package notifier

import (
	"github.com/propline/promopost/internal/config"
	"github.com/propline/promopost/internal/notifier/providers"
	"github.com/propline/promopost/internal/report"
)

// Notifier emails run summaries to the operator.
type Notifier struct {
	sender Sender
	toAddr string
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to, subject, htmlBody, plainBody string) error
}

// New creates a notifier with the given sender
func New(sender Sender, toAddr string) *Notifier {
	return &Notifier{sender: sender, toAddr: toAddr}
}

// NewFromConfig creates a notifier based on configuration
func NewFromConfig(cfg config.EmailConfig, smtpPassword string) *Notifier {
	sender := providers.NewSMTPSender(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		smtpPassword,
		cfg.FromAddr,
	)
	return New(sender, cfg.ToAddr)
}

// SendSummary emails a run summary.
func (n *Notifier) SendSummary(s *report.Summary) error {
	return n.sender.Send(n.toAddr, s.Subject, s.HTMLBody, s.PlainBody)
}
