// Package mailer sends plain-text mail over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/config"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

// FeedbackSubject is the subject line of feedback mail
const FeedbackSubject = "Feedback"

// ErrNotConfigured is returned when no SMTP host or recipient is set
var ErrNotConfigured = errors.New("mailer is not configured")

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends mail through an SMTP relay
type Mailer struct {
	addr      string
	auth      smtp.Auth
	from      string
	recipient string
	send      sendFunc
	logger    *logging.Logger
}

// New creates a mailer from config
func New(cfg config.MailConfig, logger *logging.Logger) *Mailer {
	if logger == nil {
		logger = logging.Nop()
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}

	return &Mailer{
		addr:      net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth:      auth,
		from:      from,
		recipient: cfg.FeedbackRecipient,
		send:      smtp.SendMail,
		logger:    logger,
	}
}

// Send delivers a plain-text message to a single recipient
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if strings.HasPrefix(m.addr, ":") || to == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := m.send(m.addr, m.auth, m.from, []string{to}, buildMessage(m.from, to, subject, body, start))
	if err != nil {
		m.logger.WithError(err).WithField("to", to).Error("Failed to send mail")
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.WithFields(map[string]interface{}{
		"to":          to,
		"subject":     subject,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Mail sent")
	return nil
}

// SendFeedback mails a user's feedback to the configured recipient
func (m *Mailer) SendFeedback(ctx context.Context, fb *models.Feedback) error {
	return m.Send(ctx, m.recipient, FeedbackSubject, FeedbackBody(fb))
}

// FeedbackBody formats the body of a feedback mail
func FeedbackBody(fb *models.Feedback) string {
	return fmt.Sprintf("Feedback from %s: %s", fb.Username, fb.Text)
}

func buildMessage(from, to, subject, body string, date time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	b.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
