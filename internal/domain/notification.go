package domain

import "context"

// Notifier delivers a message to a person or system.
type Notifier interface {
	SendNotification(ctx context.Context, title, message string) error
}
