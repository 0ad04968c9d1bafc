// Package notify delivers rendered reports over SMTP.
package notify

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	gomail "gopkg.in/gomail.v2"

	"github.com/aa-analytics/funnelreport/config"
)

// ErrNotConfigured signals that SMTP credentials are absent; callers log and
// move on instead of failing the entity.
var ErrNotConfigured = errors.New("notify: smtp not configured")

// Notice is one report email: recipients, rendered body and the attachment
// path.
type Notice struct {
	Entity     string
	To         []string
	CC         []string
	Subject    string
	BodyHTML   string
	Attachment string
}

// Notifier sends a notice; implementations decide transport.
type Notifier interface {
	Send(ctx context.Context, n Notice) error
}

// Mailer sends notices through an SMTP server with STARTTLS.
type Mailer struct {
	cfg config.SMTPConfig
}

var _ Notifier = (*Mailer)(nil)

// NewMailer wraps the SMTP settings; sending fails with ErrNotConfigured
// until credentials are present.
func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send builds and delivers the message. The HTML body doubles as the plain
// alternative with tags stripped.
func (m *Mailer) Send(ctx context.Context, n Notice) error {
	if !m.cfg.Enabled() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.User
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", n.To...)
	if len(n.CC) > 0 {
		msg.SetHeader("Cc", n.CC...)
	}
	msg.SetHeader("Subject", n.Subject)
	msg.SetBody("text/plain", plainText(n.BodyHTML))
	msg.AddAlternative("text/html", n.BodyHTML)
	if n.Attachment != "" {
		msg.Attach(n.Attachment)
	}

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		return errors.Wrapf(err, "notify: send to %s", strings.Join(n.To, ","))
	}
	return nil
}

func plainText(html string) string {
	replacer := strings.NewReplacer("<br>", "\n", "<b>", "", "</b>", "", "&amp;", "&")
	return replacer.Replace(html)
}
