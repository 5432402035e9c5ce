package auth

import (
	"errors"
	"slices"
)

// Role is an authorisation tier.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// ValidRoles lists roles in ascending privilege.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return slices.Contains(ValidRoles, r)
}

// Auth errors.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token has expired")
	ErrForbidden    = errors.New("auth: insufficient permissions")
	ErrInvalidRole  = errors.New("auth: invalid role")
	ErrNoSecret     = errors.New("auth: signing secret is empty")
)
