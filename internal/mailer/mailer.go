// Package mailer delivers account lifecycle mail. The default implementation
// only records deliveries in the application log; a real SMTP or provider
// backend satisfies the same interface.
package mailer

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Mailer sends account lifecycle notifications.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes outgoing mail to the application log instead of sending
// it. Tokens are logged truncated.
type LogMailer struct{}

// NewLogMailer constructs a LogMailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// SendVerification logs an email verification delivery.
func (m *LogMailer) SendVerification(_ context.Context, email, token string) error {
	if email == "" {
		return fmt.Errorf("mailer: missing recipient")
	}
	log.WithFields(log.Fields{
		"to":    email,
		"token": truncateToken(token),
	}).Info("mailer: verification email")
	return nil
}

// SendPasswordReset logs a password reset delivery.
func (m *LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	if email == "" {
		return fmt.Errorf("mailer: missing recipient")
	}
	log.WithFields(log.Fields{
		"to":    email,
		"token": truncateToken(token),
	}).Info("mailer: password reset email")
	return nil
}

func truncateToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
