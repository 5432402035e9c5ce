package domain

import "errors"

// Domain errors shared by capability port implementations.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, domain.ErrDataUnavailable) {
//	    // skip this cycle
//	}
var (
	// ErrDataUnavailable is returned when a port cannot produce a reading right now.
	ErrDataUnavailable = errors.New("domain: data unavailable")

	// ErrStaleData is returned when the latest reading is older than allowed.
	ErrStaleData = errors.New("domain: stale data")

	// ErrNotConnected is returned by ports whose external service is disconnected.
	ErrNotConnected = errors.New("domain: external service not connected")

	// ErrInvalidTransition is returned when a miner cannot move to the requested status.
	ErrInvalidTransition = errors.New("domain: invalid miner status transition")
)
