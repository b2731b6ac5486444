package domain

import "fmt"

// Role is one of the fixed operating modes a session can be in.
type Role string

const (
	RoleViewer      Role = "viewer"
	RoleAdvertiser  Role = "advertiser"
	RolePublisher   Role = "publisher"
	RoleAdmin       Role = "admin"
	RoleStakeholder Role = "stakeholder"
)

// ValidRoles contains all valid roles, in canonical order.
var ValidRoles = []Role{RoleViewer, RoleAdvertiser, RolePublisher, RoleAdmin, RoleStakeholder}

// IsValidRole checks if a role is a member of the closed role set.
func IsValidRole(role Role) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// AllRoles returns the full closed role set as a RoleSet.
func AllRoles() RoleSet {
	return NewRoleSet(ValidRoles...)
}

// ParseRole converts a raw string into a Role, rejecting anything
// outside the closed set.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !IsValidRole(role) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return role, nil
}

// canonicalIndex returns the position of a role in the canonical order,
// or len(ValidRoles) for unknown roles so they sort last.
func canonicalIndex(role Role) int {
	for i, r := range ValidRoles {
		if r == role {
			return i
		}
	}
	return len(ValidRoles)
}
