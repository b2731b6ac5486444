package domain

import "sort"

// RoleSet is a deduplicated set of roles kept in canonical order.
// It serializes as a plain JSON list of role names.
type RoleSet []Role

// NewRoleSet builds a RoleSet from the given roles, dropping duplicates
// and anything outside the closed role set.
func NewRoleSet(roles ...Role) RoleSet {
	seen := make(map[Role]bool, len(roles))
	set := make(RoleSet, 0, len(roles))
	for _, r := range roles {
		if !IsValidRole(r) || seen[r] {
			continue
		}
		seen[r] = true
		set = append(set, r)
	}
	sort.Slice(set, func(i, j int) bool {
		return canonicalIndex(set[i]) < canonicalIndex(set[j])
	})
	return set
}

// Contains reports whether role is a member of the set.
func (s RoleSet) Contains(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// Equal reports whether two sets hold the same members.
func (s RoleSet) Equal(other RoleSet) bool {
	if len(s) != len(other) {
		return false
	}
	for _, r := range s {
		if !other.Contains(r) {
			return false
		}
	}
	return true
}

// With returns a copy of the set with role added.
func (s RoleSet) With(role Role) RoleSet {
	return NewRoleSet(append(append(RoleSet{}, s...), role)...)
}

// Strings returns the members as plain strings.
func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}
