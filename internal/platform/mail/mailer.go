package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	verificationSubject  = "Verify your email address"
	passwordResetSubject = "Reset your password"
)

// Recipient identifies who an account email is addressed to.
type Recipient struct {
	Email string
	Name  string
}

// Mailer renders account emails and hands them to a Sender.
type Mailer struct {
	sender        Sender
	publicURL     string
	resetValidFor time.Duration
	templates     *template.Template
}

// NewMailer creates a Mailer whose links point under publicURL.
func NewMailer(sender Sender, publicURL string, resetValidFor time.Duration) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail templates: %w", err)
	}
	return &Mailer{
		sender:        sender,
		publicURL:     strings.TrimRight(publicURL, "/"),
		resetValidFor: resetValidFor,
		templates:     tmpl,
	}, nil
}

// SendVerification emails the email verification link.
func (m *Mailer) SendVerification(ctx context.Context, to Recipient, token string) error {
	return m.send(ctx, to, verificationSubject, "verification.tmpl", map[string]interface{}{
		"Name": displayName(to),
		"Link": m.link("/verify-email", token),
	})
}

// SendPasswordReset emails the password reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to Recipient, token string) error {
	return m.send(ctx, to, passwordResetSubject, "password_reset.tmpl", map[string]interface{}{
		"Name":     displayName(to),
		"Link":     m.link("/reset-password", token),
		"ValidFor": m.resetValidFor.String(),
	})
}

func (m *Mailer) send(ctx context.Context, to Recipient, subject, name string, data interface{}) error {
	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return m.sender.Send(ctx, Message{To: to.Email, Subject: subject, Body: body.String()})
}

func (m *Mailer) link(path, token string) string {
	return m.publicURL + path + "?token=" + url.QueryEscape(token)
}

func displayName(r Recipient) string {
	if r.Name != "" {
		return r.Name
	}
	return "there"
}
