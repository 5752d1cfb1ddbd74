package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

var ErrUnknownTemplate = errors.New("unknown email template")

// DefaultTemplates returns the built-in template set.
func DefaultTemplates() fs.FS {
	sub, _ := fs.Sub(defaultTemplates, "templates")
	return sub
}

// SMTPSender envia os e-mails transacionais por SMTP. Cada template é
// {templateID}.html e define os blocos "subject" e "body".
type SMTPSender struct {
	dialer    Dialer
	from      string
	templates fs.FS
	logger    *zap.Logger
}

func NewSMTPSender(host string, port int, user, password, from string, templates fs.FS, logger *zap.Logger) *SMTPSender {
	return NewSMTPSenderWithDialer(gomail.NewDialer(host, port, user, password), from, templates, logger)
}

func NewSMTPSenderWithDialer(d Dialer, from string, templates fs.FS, logger *zap.Logger) *SMTPSender {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{dialer: d, from: from, templates: templates, logger: logger.Named("smtp")}
}

// SendTransactional renders templateID and sends it. gomail has no context
// support, so ctx is only checked before dialing.
func (s *SMTPSender) SendTransactional(ctx context.Context, id entity.Identity, templateID string, data map[string]any) error {
	subject, body, err := s.render(templateID, templateData{Email: id.String(), Data: data})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", id.String())
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s via smtp: %w", templateID, err)
	}
	s.logger.Info("email sent", zap.String("template", templateID), zap.String("to", id.String()))
	return nil
}

func (s *SMTPSender) render(templateID string, data templateData) (string, string, error) {
	if strings.ContainsAny(templateID, `/\`) {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
	t, err := template.ParseFS(s.templates, templateID+".html")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
		}
		return "", "", fmt.Errorf("parse template %s: %w", templateID, err)
	}

	var subject, body bytes.Buffer
	if err := t.ExecuteTemplate(&subject, "subject", data); err != nil {
		return "", "", fmt.Errorf("render subject of %s: %w", templateID, err)
	}
	if err := t.ExecuteTemplate(&body, "body", data); err != nil {
		return "", "", fmt.Errorf("render body of %s: %w", templateID, err)
	}
	return strings.TrimSpace(subject.String()), body.String(), nil
}
