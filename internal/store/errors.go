package store

import "errors"

// Store errors.
// Adapter entities missing from their table are reported with adapter.ErrNotFound.
var (
	// ErrEnergySourceNotFound is returned when an energy source does not exist.
	ErrEnergySourceNotFound = errors.New("store: energy source not found")

	// ErrMinerNotFound is returned when a miner does not exist.
	ErrMinerNotFound = errors.New("store: miner not found")

	// ErrRuleNotFound is returned when an automation rule does not exist.
	ErrRuleNotFound = errors.New("store: automation rule not found")

	// ErrUnitNotFound is returned when an optimization unit does not exist.
	ErrUnitNotFound = errors.New("store: optimization unit not found")

	// ErrIDConflict is returned when an id is already used by another category.
	ErrIDConflict = errors.New("store: id already in use")

	// ErrInvalidEntity is returned when a record fails validation before writing.
	ErrInvalidEntity = errors.New("store: invalid entity")
)
