package adapter

import "errors"

// Registry errors.
//
// Every failed Result carries one of these, so callers can branch with
// errors.Is:
//
//	res := registry.Notifier(ctx, id)
//	if errors.Is(res.Err, adapter.ErrUnsupportedAdapterType) {
//	    // configuration needs fixing
//	}
var (
	// ErrNotFound is returned when a referenced configuration entity does not exist.
	// Getters turn it into an empty result rather than a failure.
	ErrNotFound = errors.New("adapter: not found")

	// ErrUnresolvedDependency is returned when a required external service or
	// domain context (energy source, miner) cannot be resolved.
	ErrUnresolvedDependency = errors.New("adapter: unresolved dependency")

	// ErrUnsupportedAdapterType is returned when no factory is registered for
	// the entity's (category, adapter_type).
	ErrUnsupportedAdapterType = errors.New("adapter: unsupported adapter type")

	// ErrConstructionFailed is returned when a factory fails or panics, or
	// returns something that does not satisfy the category's port.
	ErrConstructionFailed = errors.New("adapter: construction failed")

	// ErrRepository is returned when an entity lookup fails for a reason
	// other than the entity being absent.
	ErrRepository = errors.New("adapter: repository lookup failed")

	// ErrInvalidPayload is returned when a config payload fails decoding or validation.
	ErrInvalidPayload = errors.New("adapter: invalid config payload")

	// ErrInvalidCategory is returned for an unknown category.
	ErrInvalidCategory = errors.New("adapter: invalid category")
)
