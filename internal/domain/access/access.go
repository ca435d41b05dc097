// Package access decides which tenant and owner a caller may read.
package access

import (
	"strings"

	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID   string
	TenantID string
	Roles    []string

	// Privileged callers (staff/admin) may read any tenant and any owner.
	Privileged bool
}

// NewCaller builds a Caller and marks it privileged when one of roles appears
// in privilegedRoles (case-insensitive).
func NewCaller(userID, tenantID string, roles, privilegedRoles []string) Caller {
	c := Caller{UserID: userID, TenantID: tenantID, Roles: roles}
	for _, r := range roles {
		for _, p := range privilegedRoles {
			if strings.EqualFold(r, p) {
				c.Privileged = true
			}
		}
	}
	return c
}

// ResolveTenant returns the tenant scope a read must be restricted to.
//
// A privileged caller gets the requested tenant as is; an empty result means
// "all tenants".  Any other caller is pinned to its own tenant, and asking for
// a different one is forbidden.  A non-privileged caller without a tenant is
// forbidden outright.
func ResolveTenant(c Caller, requested string) (string, error) {
	if c.Privileged {
		return requested, nil
	}
	if c.TenantID == "" {
		return "", pkgerrors.Forbidden("caller is not bound to a tenant")
	}
	if requested != "" && requested != c.TenantID {
		return "", pkgerrors.Forbidden("cross-tenant access denied")
	}
	return c.TenantID, nil
}

// ResolveOwner returns the task owner a read must be restricted to.  Empty
// means every owner and is only available to privileged callers.
func ResolveOwner(c Caller, requested string) (string, error) {
	if c.Privileged {
		return requested, nil
	}
	if requested != "" && requested != c.UserID {
		return "", pkgerrors.Forbidden("cannot read another user's agenda")
	}
	return c.UserID, nil
}
