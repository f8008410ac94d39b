// Package tenant carries the caller identity into every service call.
package tenant

import "errors"

type Role string

const (
	RoleOwner    Role = "OWNER"
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
)

var ErrUnauthorized = errors.New("unauthorized")

// Context identifies the tenant and the acting staff member. A public
// storefront caller has a TenantID but no ActorID.
type Context struct {
	TenantID string
	ActorID  string
	Role     Role
}

func (c Context) IsStaff() bool {
	return c.TenantID != "" && c.ActorID != ""
}

func (c Context) IsAdmin() bool {
	return c.IsStaff() && (c.Role == RoleOwner || c.Role == RoleAdmin)
}

// RequireStaff returns ErrUnauthorized unless c is an authenticated staff member.
func (c Context) RequireStaff() error {
	if !c.IsStaff() {
		return ErrUnauthorized
	}
	return nil
}

func (c Context) RequireAdmin() error {
	if !c.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}
