// Package auth defines caller identity and roles shared by the domain services.
package auth

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// Role is the closed set of user roles.
type Role string

// Known roles.
const (
	RoleAdmin   Role = "admin"
	RoleStore   Role = "store"
	RoleClient  Role = "client"
	RoleCourier Role = "courier"
)

// ErrInvalidRole is returned by ParseRole for values outside the known set.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole converts a raw role string into a Role. Matching ignores case and
// surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", errors.Wrapf(ErrInvalidRole, "%q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStore, RoleClient, RoleCourier:
		return true
	default:
		return false
	}
}

// In reports whether r is any of roles.
func (r Role) In(roles ...Role) bool {
	for _, x := range roles {
		if r == x {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// Identity is an already-authenticated caller.
type Identity struct {
	UserID string
	Role   Role
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext extracts the caller identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
