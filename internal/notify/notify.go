package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"workorder-invoicer/internal/components/assert"
	"workorder-invoicer/internal/components/telemetry"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("workorder-invoicer/internal/notify")

const (
	report_mailer_send = "mailer.send"
)

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

// Notification is a plain text mail with optional file attachments.
type Notification struct {
	Subject     string
	Body        string
	Attachments []string
}

type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

func sendMail(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

// Mailer delivers notifications to the configured recipients. A Mailer without a
// server or recipients is disabled and drops every notification.
type Mailer struct {
	config SmtpConfig
	tel    telemetry.API
	send   sendFunc
}

func NewMailer(config SmtpConfig, tel telemetry.API) Mailer {
	assert.NotNil(tel)
	if config.Port == 0 {
		config.Port = 587
	}
	return Mailer{
		config: config,
		tel:    telemetry.NewScopedAPI("notify", tel),
		send:   sendMail,
	}
}

func (m Mailer) Enabled() bool {
	return m.config.Server != "" && m.config.EmailAddress != "" && len(m.config.Recipients) > 0
}

func (m Mailer) compose(n Notification) (*email.Email, error) {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Work Order Invoicer <%s>", m.config.EmailAddress)
	mail.To = m.config.Recipients
	mail.Subject = n.Subject
	mail.Text = []byte(n.Body)
	for _, path := range n.Attachments {
		_, err := mail.AttachFile(path)
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", path, err)
		}
	}
	return mail, nil
}

func (m Mailer) Send(ctx context.Context, n Notification) error {
	if !m.Enabled() {
		return nil
	}

	_, span := tracer.Start(ctx, "notify:send")
	defer span.End()
	span.SetAttributes(attribute.String("subject", n.Subject))

	mail, err := m.compose(n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compose email")
		m.tel.ReportBroken(report_mailer_send, err, n.Subject)
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
	err = m.send(
		mail,
		addr,
		smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = m.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		m.tel.ReportBroken(report_mailer_send, err, n.Subject)
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
