package domain

import "time"

// Event topics carried by the bus. Legacy subscribers listen on
// TopicLegacyRoleSignal, which mirrors every role change with the old
// payload shape.
const (
	TopicRoleChanged           = "role.changed"
	TopicAvailableRolesUpdated = "role.available_updated"
	TopicLegacyRoleSignal      = "legacy.role-signal"
)

// RoleChangeEvent is published exactly once per successful role switch.
type RoleChangeEvent struct {
	From           Role      `json:"from"`
	To             Role      `json:"to"`
	AvailableRoles RoleSet   `json:"available_roles"`
	Timestamp      time.Time `json:"timestamp"`
}

// AvailableRolesEvent is published when the set of selectable roles
// changes without the current role changing (e.g. enable-all in test mode).
type AvailableRolesEvent struct {
	AvailableRoles RoleSet   `json:"available_roles"`
	CurrentRole    Role      `json:"current_role"`
	Timestamp      time.Time `json:"timestamp"`
}

// LegacyRoleSignal is the payload shape components predating the typed
// bus still expect. Field names must not change.
type LegacyRoleSignal struct {
	OldRole string   `json:"oldRole"`
	NewRole string   `json:"newRole"`
	Roles   []string `json:"roles"`
	TS      int64    `json:"ts"`
}

// LegacySignalFromChange converts a typed change event into the legacy shape.
func LegacySignalFromChange(ev RoleChangeEvent) LegacyRoleSignal {
	return LegacyRoleSignal{
		OldRole: string(ev.From),
		NewRole: string(ev.To),
		Roles:   ev.AvailableRoles.Strings(),
		TS:      ev.Timestamp.UnixMilli(),
	}
}
