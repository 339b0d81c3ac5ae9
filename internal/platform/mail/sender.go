// Package mail sends account emails.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/colloquyhq/colloquy-api/internal/config"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/redact"
)

// Message is a plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns an SMTP sender when mail is enabled and a log-only sender
// otherwise.
func NewSender(cfg config.MailConfig, log *slog.Logger) Sender {
	if !cfg.Enabled {
		return NewLogSender(log)
	}
	return NewSMTPSender(cfg)
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	addr     string
	host     string
	from     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

// NewSMTPSender creates a sender for cfg. PLAIN auth is used when a username
// is configured.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	s := &SMTPSender{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:     cfg.Host,
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("invalid header value in message to %s", redact.String(msg.To))
	}

	if err := s.sendMail(s.addr, s.auth, s.from, []string{msg.To}, s.format(msg)); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", s.host, err)
	}
	return nil
}

func (s *SMTPSender) format(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{logger: log.With(slog.String("component", "mail"))}
}

// Send implements Sender. The recipient is redacted; the body may carry a
// one-time link and is only logged at debug level.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Info("mail delivery disabled, message logged only",
		slog.String("to", redact.String(msg.To)),
		slog.String("subject", msg.Subject))
	log.Debug("mail body", slog.String("body", msg.Body))
	return nil
}
