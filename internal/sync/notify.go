package sync

import (
	"context"

	"go.uber.org/zap"
)

// Notification is the structured error payload handed to the notification
// side-channel. Delivery (email/SMS) is the channel's concern, not this
// subsystem's.
type Notification struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

// Notifier receives notification payloads.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier is the default channel: it only logs the payload.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a logging notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the payload.
func (n *LogNotifier) Notify(_ context.Context, payload Notification) {
	n.logger.Sugar().Warnw("sync notification",
		"title", payload.Title,
		"body", payload.Body,
		"recipients", payload.Recipients,
	)
}
