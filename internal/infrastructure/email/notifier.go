package email

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"

	"AnalystScanner/internal/config"
	"AnalystScanner/internal/ports"
)

const subjectPrefix = "Analyst price targets"

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Notifier mails digests through an SMTP server.
type Notifier struct {
	from   string
	to     string
	dialer dialer
	now    func() time.Time
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier builds an SMTP notifier from configuration.
func NewNotifier(cfg config.EmailConfig) *Notifier {
	d := gomail.NewDialer(cfg.Server, cfg.Port, cfg.User, cfg.Password)
	d.Timeout = 10 * time.Second
	return &Notifier{
		from:   cfg.Sender(),
		to:     cfg.To,
		dialer: d,
		now:    time.Now,
	}
}

// PublishDigest sends the digest as a plain text message.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.dialer == nil || n.from == "" || n.to == "" {
		return fmt.Errorf("email notifier misconfigured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	message := gomail.NewMessage()
	message.SetHeader("From", n.from)
	message.SetHeader("To", n.to)
	message.SetHeader("Subject", fmt.Sprintf("%s - %s", subjectPrefix, n.now().Format("02 Jan 2006 15:04")))
	message.SetBody("text/plain", digest)

	if err := n.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("send email to %s: %w", n.to, err)
	}
	return nil
}
