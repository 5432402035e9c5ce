package policy

import "errors"

// Rule evaluation errors.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, policy.ErrFieldNotFound) {
//	    // the context lacks data this rule needs
//	}
var (
	// ErrInvalidCondition is returned when a condition tree is malformed.
	ErrInvalidCondition = errors.New("policy: invalid condition")

	// ErrUnknownOperator is returned for an operator outside the supported set.
	ErrUnknownOperator = errors.New("policy: unknown operator")

	// ErrFieldNotFound is returned when a field path does not resolve in the context.
	ErrFieldNotFound = errors.New("policy: field not found")

	// ErrTypeMismatch is returned when an operator cannot compare the given values.
	ErrTypeMismatch = errors.New("policy: type mismatch")
)
