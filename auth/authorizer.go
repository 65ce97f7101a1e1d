package auth

import (
	"fmt"
	"slices"
)

// Admin permissions.
const (
	PermCacheRead  = "cache:read"
	PermCachePurge = "cache:purge"
)

// DefaultRoles grants the admin role everything and the viewer role
// read-only access.
var DefaultRoles = map[string][]string{
	"admin":  {"*"},
	"viewer": {PermCacheRead},
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	Principal  string
	Permission string
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("auth: %q lacks permission %q", e.Principal, e.Permission)
}

// Is matches ErrForbidden.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// Authorizer maps roles to permissions.
type Authorizer struct {
	roles map[string][]string
}

// NewAuthorizer creates an authorizer. A nil map selects DefaultRoles.
func NewAuthorizer(roles map[string][]string) *Authorizer {
	if roles == nil {
		roles = DefaultRoles
	}
	return &Authorizer{roles: roles}
}

// Authorize returns nil if any role of id grants perm.
func (a *Authorizer) Authorize(id *Identity, perm string) error {
	if id == nil {
		return &AuthzError{Permission: perm}
	}
	for _, role := range id.Roles {
		perms := a.roles[role]
		if slices.Contains(perms, "*") || slices.Contains(perms, perm) {
			return nil
		}
	}
	return &AuthzError{Principal: id.Principal, Permission: perm}
}
