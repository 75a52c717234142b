// Package auth carries the caller identity through service calls and issues
// the bearer tokens that establish it.
package auth

import (
	"context"
	"fmt"

	"github.com/rpggio/agencyops/internal/errs"
)

// Role is a user's access level.
type Role string

const (
	RoleAdmin Role = "admin"
	RolePM    Role = "pm"
	RoleTech  Role = "tech"
)

var (
	// ErrForbidden indicates the caller's role may not perform the operation.
	ErrForbidden = errs.Permission("insufficient permissions for this operation")
	// ErrInvalidRole indicates an unknown role name.
	ErrInvalidRole = errs.Validation("invalid role")
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RolePM, RoleTech:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Context identifies the caller of a service operation.
type Context struct {
	UserID string
	Role   Role
}

// System is the identity used by scheduled jobs and the CLI.
var System = Context{UserID: "system", Role: RoleAdmin}

// Privileged reports whether the caller is a pm or admin.
func (c Context) Privileged() bool {
	return c.Role == RoleAdmin || c.Role == RolePM
}

// Require returns ErrForbidden unless the caller has one of roles.
func (c Context) Require(roles ...Role) error {
	for _, r := range roles {
		if c.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

type ctxKey struct{}

// WithContext attaches the caller identity to ctx.
func WithContext(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext extracts the caller identity attached by WithContext.
func FromContext(ctx context.Context) (Context, bool) {
	c, ok := ctx.Value(ctxKey{}).(Context)
	return c, ok
}
