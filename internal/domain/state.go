package domain

import "time"

// TestMode is the time-boxed override that unlocks all roles.
type TestMode struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ActiveAt reports whether test mode is in effect at the given instant.
// Expiry is evaluated lazily here on every read; there is no background
// timer, so a persisted-but-expired record reads as inactive.
func (t TestMode) ActiveAt(now time.Time) bool {
	if !t.Active {
		return false
	}
	if t.ExpiresAt != nil && !now.Before(*t.ExpiresAt) {
		return false
	}
	return true
}

// RoleState is the authoritative snapshot of the session's role facts.
type RoleState struct {
	CurrentRole    Role      `json:"current_role"`
	AvailableRoles RoleSet   `json:"available_roles"`
	TestMode       TestMode  `json:"test_mode"`
	LastUpdated    time.Time `json:"last_updated"`
}

// DefaultRoleState is the state used when nothing has been persisted yet:
// viewer only, test mode off.
func DefaultRoleState(now time.Time) RoleState {
	return RoleState{
		CurrentRole:    RoleViewer,
		AvailableRoles: NewRoleSet(RoleViewer),
		TestMode:       TestMode{},
		LastUpdated:    now,
	}
}

// Valid reports whether the state honors the structural invariants:
// the current role is a member of the closed set and of the available set.
func (s RoleState) Valid() bool {
	return IsValidRole(s.CurrentRole) && s.AvailableRoles.Contains(s.CurrentRole)
}
