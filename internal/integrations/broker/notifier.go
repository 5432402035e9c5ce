package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// notificationSource identifies this application in published messages.
const notificationSource = "edge-mining"

type notification struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// Notifier publishes notifications as JSON to a single topic.
type Notifier struct {
	broker   Broker
	topic    string
	qos      byte
	retained bool
	now      func() time.Time
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier for cfg.Topic.
func NewNotifier(b Broker, cfg *adapter.MQTTNotifierConfig) *Notifier {
	return &Notifier{
		broker:   b,
		topic:    cfg.Topic,
		qos:      byte(cfg.QoS),
		retained: cfg.Retained,
		now:      time.Now,
	}
}

// SendNotification implements domain.Notifier.
func (n *Notifier) SendNotification(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(notification{
		Title:     title,
		Message:   message,
		Source:    notificationSource,
		Timestamp: n.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	if err := n.broker.Publish(n.topic, data, n.qos, n.retained); err != nil {
		return fmt.Errorf("publishing notification to %s: %w", n.topic, err)
	}
	return nil
}
