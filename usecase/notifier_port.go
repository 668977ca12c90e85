package usecase

import (
	"context"

	"github.com/kazilink/backend/domain"
)

// Notifier abstracts the notification collaborator. Implementations are
// best-effort delivery channels; use cases invoke them only after the
// core transaction has committed and log-and-drop any error.
type Notifier interface {
	Notify(ctx context.Context, event domain.Notification) error
}

// NopNotifier discards every event. Useful when a deployment runs
// without a notification channel.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, event domain.Notification) error { return nil }
