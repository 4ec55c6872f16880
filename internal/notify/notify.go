// Package notify delivers transient user notifications.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-token-exchange/internal/logging"
	"solana-token-exchange/internal/observability"
)

// Level classifies a notification for display.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

// Notification is a short message shown to the user until it expires.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Feed is a Notifier whose active notifications can be listed.
type Feed interface {
	Notifier
	Active(ctx context.Context) ([]Notification, error)
}

// New builds a notification stamped with a fresh id and now.
func New(level Level, message string, now time.Time, ttl time.Duration) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Success sends a success notification. Delivery errors are logged only.
func Success(ctx context.Context, n Notifier, message string) {
	send(ctx, n, LevelSuccess, message)
}

// Error sends an error notification. Delivery errors are logged only.
func Error(ctx context.Context, n Notifier, message string) {
	send(ctx, n, LevelError, message)
}

// Info sends an informational notification. Delivery errors are logged only.
func Info(ctx context.Context, n Notifier, message string) {
	send(ctx, n, LevelInfo, message)
}

func send(ctx context.Context, n Notifier, level Level, message string) {
	observability.RecordNotification(string(level))
	logEvent(level).Str("level", string(level)).Msg(message)
	if n == nil {
		return
	}
	if err := n.Send(ctx, Notification{Level: level, Message: message}); err != nil {
		logging.Notify.Warn().Err(err).Str("message", message).Msg("notification not delivered")
	}
}

func logEvent(level Level) *zerolog.Event {
	if level == LevelError {
		return logging.Notify.Warn()
	}
	return logging.Notify.Info()
}

// Discard drops every notification.
type Discard struct{}

// Send implements Notifier.
func (Discard) Send(context.Context, Notification) error { return nil }
