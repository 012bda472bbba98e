// Package mailer sends transactional email: verification links on
// registration and password-reset links on request.
//
// FIRE-AND-FORGET CONTRACT:
// Email here is a courtesy, never a dependency. Callers log a send failure
// and move on — registration and reset requests must succeed even when the
// mail provider is down. Nothing in this package is allowed to become a
// hard failure path for a request.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer is the outbound email interface. Two implementations: SMTP for
// real delivery, Log for development and tests.
type Mailer interface {
	SendVerification(ctx context.Context, toEmail, toName, token string) error
	SendPasswordReset(ctx context.Context, toEmail, toName, token string) error
}

// Config holds SMTP settings plus the public-facing URLs embedded in
// email bodies.
type Config struct {
	Host        string // SMTP host; empty means "use the log mailer"
	Port        int
	Username    string
	Password    string
	From        string // e.g. "Deckshare <no-reply@deckshare.app>"
	FrontendURL string // base URL for verification/reset links
}

// New returns an SMTP mailer if cfg.Host is set, otherwise a log-only
// mailer. This keeps local development working with zero mail config.
func New(cfg Config, logger *slog.Logger) Mailer {
	if cfg.Host == "" {
		logger.Warn("SMTP not configured — emails will be logged, not sent")
		return &LogMailer{logger: logger, frontendURL: cfg.FrontendURL}
	}
	return &SMTPMailer{cfg: cfg}
}

// SMTPMailer delivers mail over plain SMTP with AUTH PLAIN.
type SMTPMailer struct {
	cfg Config
}

var _ Mailer = (*SMTPMailer)(nil)

func (m *SMTPMailer) SendVerification(ctx context.Context, toEmail, toName, token string) error {
	link := fmt.Sprintf("%s/verify/%s", strings.TrimRight(m.cfg.FrontendURL, "/"), token)
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\n"+
			"Thanks for signing up. Please verify your email address by opening this link:\r\n\r\n"+
			"%s\r\n\r\n"+
			"The link is valid for 24 hours. If you didn't create an account, you can ignore this email.\r\n",
		toName, link,
	)
	return m.send(ctx, toEmail, "Verify your Deckshare account", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, toEmail, toName, token string) error {
	link := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(m.cfg.FrontendURL, "/"), token)
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\n"+
			"A password reset was requested for your account. Open this link to choose a new password:\r\n\r\n"+
			"%s\r\n\r\n"+
			"The link is valid for 1 hour and can be used once. If you didn't request a reset, you can ignore this email.\r\n",
		toName, link,
	)
	return m.send(ctx, toEmail, "Reset your Deckshare password", body)
}

// send assembles an RFC 5322 message and hands it to net/smtp.
//
// net/smtp doesn't take a context; the ctx parameter is kept on the
// interface so an HTTP-API provider implementation can honor cancellation.
func (m *SMTPMailer) send(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.cfg.From, to, subject, body,
	)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("mailer: sending %q to %s: %w", subject, to, err)
	}
	return nil
}

// LogMailer writes would-be emails to the log instead of sending them.
type LogMailer struct {
	logger      *slog.Logger
	frontendURL string
}

var _ Mailer = (*LogMailer)(nil)

func (m *LogMailer) SendVerification(_ context.Context, toEmail, toName, token string) error {
	m.logger.Info("verification email (not sent)",
		slog.String("to", toEmail),
		slog.String("name", toName),
		slog.String("link", fmt.Sprintf("%s/verify/%s", strings.TrimRight(m.frontendURL, "/"), token)),
	)
	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, toEmail, toName, token string) error {
	m.logger.Info("password reset email (not sent)",
		slog.String("to", toEmail),
		slog.String("name", toName),
		slog.String("link", fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(m.frontendURL, "/"), token)),
	)
	return nil
}
