// Package notify delivers one-time credential tokens to account owners.
package notify

import (
	"context"
	"time"
)

type Purpose string

const (
	PurposePasswordReset     Purpose = "password_reset"
	PurposeEmailVerification Purpose = "email_verification"
)

// Notification carries a plaintext token to its owner. It is the only
// place the plaintext exists after it leaves the credential service.
type Notification struct {
	Email     string
	Name      string
	Token     string
	Purpose   Purpose
	ExpiresAt time.Time
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
