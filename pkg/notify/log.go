package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes tokens to the log. Development only: anyone with log
// access can redeem them.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.With(zap.String("notifier", "log"))}
}

func (n *LogNotifier) Notify(_ context.Context, msg Notification) error {
	n.log.Info("Credential token issued",
		zap.String("email", msg.Email),
		zap.String("purpose", string(msg.Purpose)),
		zap.String("token", msg.Token),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}
