package ports

import (
	"context"

	"github.com/layer-3/labledger/core"
)

// NotificationPublisher forwards registry notifications to other consumers
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, n core.Notification) error
}
