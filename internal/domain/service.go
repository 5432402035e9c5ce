package domain

import "context"

// ExternalService is a shared backing integration, such as a remote API
// session or a broker connection, that several adapters reuse.
type ExternalService interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}
