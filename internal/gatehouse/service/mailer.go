package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/domain"
)

// ErrMailTransient marks delivery failures that are worth retrying. The
// account flows treat mail failure as non-fatal either way; the distinction
// exists for logging and future retry queues.
var ErrMailTransient = errors.New("mail_transient_failure")

// Mailer delivers account emails carrying a one-time action link. The opaque
// token only ever travels through here; the store keeps its fingerprint.
type Mailer interface {
	SendVerification(ctx context.Context, user domain.User, token string) error
	SendPasswordReset(ctx context.Context, user domain.User, token string) error
}

// LogMailer writes mail to the log instead of an SMTP relay. It is the
// default in development and under test; deployments plug in a real Mailer.
type LogMailer struct {
	Logger *slog.Logger

	// LinkBaseURL is the public frontend base the action links point at,
	// e.g. https://app.example.com.
	LinkBaseURL string
}

func (m *LogMailer) SendVerification(ctx context.Context, user domain.User, token string) error {
	m.Logger.Info("verification email",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("link", m.link("/verify-email", token)),
	)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, user domain.User, token string) error {
	m.Logger.Info("password reset email",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("link", m.link("/reset-password", token)),
	)
	return nil
}

func (m *LogMailer) link(path, token string) string {
	return m.LinkBaseURL + path + "?token=" + url.QueryEscape(token)
}
