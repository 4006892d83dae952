package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	_ "embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/hookline/hookline/internal/common/errors"
	"github.com/hookline/hookline/internal/common/logger"
	"github.com/hookline/hookline/internal/configstore"
	"github.com/hookline/hookline/internal/events"
	"github.com/hookline/hookline/internal/events/bus"
	"github.com/hookline/hookline/internal/flow"
)

//go:embed assets/email.html
var emailTemplateHTML string

// EmailMessage is a rendered mail ready for transport.
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// EmailTransport delivers a rendered message through an SMTP account.
// Implementations own their dial and send timeouts.
type EmailTransport interface {
	Send(ctx context.Context, account *configstore.SmtpData, msg *EmailMessage) error
}

// EmailSender resolves recipients and account settings for an email
// notification, renders the message body, and hands it to the transport.
type EmailSender struct {
	configs   configstore.Store
	flows     flow.Users
	eventBus  bus.EventBus
	transport EmailTransport
	template  *template.Template
	logger    *logger.Logger
}

func NewEmailSender(configs configstore.Store, flows flow.Users, eventBus bus.EventBus, transport EmailTransport, log *logger.Logger) (*EmailSender, error) {
	tmpl, err := template.New("email").Parse(emailTemplateHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}
	return &EmailSender{
		configs:   configs,
		flows:     flows,
		eventBus:  eventBus,
		transport: transport,
		template:  tmpl,
		logger:    log.WithFields(zap.String("component", "email-sender")),
	}, nil
}

func (s *EmailSender) Send(ctx context.Context, n *Notification, vars map[string]string) error {
	config, err := s.configs.Get(ctx, n.SmtpConfig)
	if err != nil {
		return err
	}
	account, err := config.Smtp()
	if err != nil {
		return err
	}

	from := n.From
	if from == "" {
		from = account.Username
	}

	to, err := s.resolveRecipients(ctx, n, vars)
	if err != nil {
		return err
	}

	html, err := s.render(n.Subject, vars)
	if err != nil {
		return err
	}

	// Published before the transport call so observers see the rendered
	// body even when the send fails.
	rendered := bus.NewEvent(events.EmailRendered, n.Name, map[string]string{
		"notification": n.Name,
		"content":      html,
	})
	if err := s.eventBus.Publish(ctx, events.EmailRendered, rendered); err != nil {
		s.logger.Warn("Failed to publish rendered email event", zap.Error(err))
	}

	msg := &EmailMessage{From: from, To: to, Subject: n.Subject, HTML: html}
	if err := s.transport.Send(ctx, account, msg); err != nil {
		return err
	}

	s.logger.Debug("Email notification sent", zap.String("notification", n.Name))
	return nil
}

// resolveRecipients expands the "all flow users" marker into the member list
// of the flow named in the context.
func (s *EmailSender) resolveRecipients(ctx context.Context, n *Notification, vars map[string]string) ([]string, error) {
	if !n.ToFlowUsers {
		return []string{n.To}, nil
	}

	flowName := vars[events.VarFlowName]
	if flowName == "" {
		return nil, errors.Status("flow name is missing from context")
	}

	users, err := s.flows.ListUsers(ctx, flowName)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errors.Statusf("flow %s has no users to notify", flowName)
	}
	return users, nil
}

func (s *EmailSender) render(subject string, vars map[string]string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Subject string
		Context map[string]string
	}{Subject: subject, Context: vars}

	if err := s.template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

// SMTPTransport sends mail over plain SMTP or implicit TLS.
type SMTPTransport struct{}

var _ EmailTransport = (*SMTPTransport)(nil)

func NewSMTPTransport() *SMTPTransport { return &SMTPTransport{} }

func (t *SMTPTransport) Send(_ context.Context, account *configstore.SmtpData, msg *EmailMessage) error {
	port := account.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", account.Host, port)

	var auth smtp.Auth
	if account.Username != "" {
		auth = smtp.PlainAuth("", account.Username, account.Password, account.Host)
	}

	body := buildMime(msg)

	if account.Secure {
		return t.sendTLS(addr, account.Host, auth, msg, body)
	}
	return smtp.SendMail(addr, auth, msg.From, msg.To, []byte(body))
}

func (t *SMTPTransport) sendTLS(addr, host string, auth smtp.Auth, msg *EmailMessage, body string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("smtp tls dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(msg.From); err != nil {
		return err
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(wc, body); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMime(msg *EmailMessage) string {
	headers := fmt.Sprintf("Subject: %s\r\nFrom: %s\r\nTo: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=utf-8\r\n\r\n",
		msg.Subject, msg.From, strings.Join(msg.To, ", "))
	return headers + strings.ReplaceAll(msg.HTML, "\n", "\r\n")
}
