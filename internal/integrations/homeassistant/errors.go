package homeassistant

import "errors"

// Home Assistant errors.
var (
	// ErrUnavailable is returned when an entity reports unavailable or unknown.
	ErrUnavailable = errors.New("homeassistant: entity unavailable")

	// ErrEntityNotFound is returned when Home Assistant has no such entity.
	ErrEntityNotFound = errors.New("homeassistant: entity not found")

	// ErrUnauthorized is returned when the access token is rejected.
	ErrUnauthorized = errors.New("homeassistant: unauthorized")

	// ErrRequestFailed is returned for transport errors and unexpected responses.
	ErrRequestFailed = errors.New("homeassistant: request failed")

	// ErrInvalidState is returned when a state cannot be parsed as a number.
	ErrInvalidState = errors.New("homeassistant: invalid state value")
)
