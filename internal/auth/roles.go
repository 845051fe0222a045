package auth

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownRole = errors.New("unknown role")
	// ErrUnauthorized marks a 401 from the backend. Any error matching it ends
	// the session.
	ErrUnauthorized = errors.New("unauthorized")
)

// Role is the role name the backend returns at login.
type Role string

const (
	RoleAdmin       Role = "Admin"
	RoleResident    Role = "Residente"
	RoleMaintenance Role = "Mantenimiento"
	RoleGuard       Role = "Vigilante"
	RoleVisitor     Role = "Visitante"
)

type roleInfo struct {
	id   int
	path string
}

var roles = map[Role]roleInfo{
	RoleAdmin:       {id: 1, path: "/admin"},
	RoleResident:    {id: 2, path: "/resident"},
	RoleMaintenance: {id: 3, path: "/maintenance"},
	RoleGuard:       {id: 4, path: "/guard"},
	RoleVisitor:     {id: 5, path: "/visitor"},
}

// Roles lists every known role in id order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleResident, RoleMaintenance, RoleGuard, RoleVisitor}
}

// ParseRole validates a role name.
func ParseRole(name string) (Role, error) {
	r := Role(name)
	if _, ok := roles[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	return r, nil
}

// Path returns the dashboard path for the role, or "" for unknown roles.
func (r Role) Path() string {
	return roles[r].path
}

// ID returns the backend's id_rol for the role, or 0 for unknown roles.
func (r Role) ID() int {
	return roles[r].id
}

func (r Role) String() string {
	return string(r)
}

// RoleByID maps a backend id_rol back to its role.
func RoleByID(id int) (Role, bool) {
	for role, info := range roles {
		if info.id == id {
			return role, true
		}
	}
	return "", false
}

// RegistrableRoles are the roles offered on the public registration form.
// Admin accounts are never self-registered.
func RegistrableRoles() []Role {
	return []Role{RoleResident, RoleMaintenance, RoleGuard, RoleVisitor}
}
