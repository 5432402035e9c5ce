package dummy

import (
	"context"
	"sync"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// Notifier writes notifications to the log and keeps a count.
type Notifier struct {
	logger adapter.Logger
	prefix string

	mu   sync.Mutex
	sent int
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier creates a logging notifier. A non-empty prefix is prepended
// to every message.
func NewNotifier(cfg *adapter.DummyNotifierConfig, logger adapter.Logger) *Notifier {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	return &Notifier{logger: logger, prefix: cfg.Message}
}

// SendNotification implements domain.Notifier.
func (n *Notifier) SendNotification(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.prefix != "" {
		message = n.prefix + " " + message
	}
	n.mu.Lock()
	n.sent++
	n.mu.Unlock()
	n.logger.Info("notification", "title", title, "message", message)
	return nil
}

// Sent returns how many notifications were delivered.
func (n *Notifier) Sent() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent
}
