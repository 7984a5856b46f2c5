package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/ports"
)

const (
	TopicIdentityRegistered = "labledger.identity.registered"
	TopicIdentityUpdated    = "labledger.identity.updated"
	TopicEventCreated       = "labledger.event.created"
)

// Topic returns the topic a notification kind is published on
func Topic(kind core.NotificationKind) (string, error) {
	switch kind {
	case core.IdentityRegistered:
		return TopicIdentityRegistered, nil
	case core.IdentityUpdated:
		return TopicIdentityUpdated, nil
	case core.EventCreated:
		return TopicEventCreated, nil
	default:
		return "", fmt.Errorf("unknown notification kind %q", kind)
	}
}

// WatermillPublisher implements the NotificationPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.NotificationPublisher {
	return &WatermillPublisher{
		publisher: publisher,
	}
}

// PublishNotification publishes a registry notification on its kind's topic
func (p *WatermillPublisher) PublishNotification(ctx context.Context, n core.Notification) error {
	topic, err := Topic(n.Kind)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.Metadata.Set("kind", string(n.Kind))
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}
