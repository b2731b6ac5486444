package validator

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"role-state-sync/internal/domain"
)

var validRoles = []interface{}{
	domain.RoleViewer,
	domain.RoleAdvertiser,
	domain.RolePublisher,
	domain.RoleAdmin,
	domain.RoleStakeholder,
}

// Validator provides validation methods for role state values.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRole validates a single role value against the closed role set.
func (v *Validator) ValidateRole(role domain.Role) error {
	return validation.Validate(role,
		validation.Required.Error("role_required"),
		validation.In(validRoles...).Error("invalid_role"),
	)
}

// ValidateRoleState validates a full role state snapshot.
func (v *Validator) ValidateRoleState(s *domain.RoleState) error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.CurrentRole,
			validation.Required.Error("current_role_required"),
			validation.In(validRoles...).Error("invalid_current_role"),
		),
		validation.Field(&s.AvailableRoles,
			validation.Required.Error("available_roles_required"),
			validation.Length(1, 0).Error("available_roles_empty"),
		),
		validation.Field(&s.LastUpdated,
			validation.Required.Error("last_updated_required"),
		),
	)
	if err != nil {
		return err
	}

	// Custom rule: the current role must be selectable
	if !s.AvailableRoles.Contains(s.CurrentRole) {
		return validation.Errors{
			"current_role": validation.NewError("current_role_not_available", "current role is not in the available set"),
		}
	}

	// Custom rule: every member of the available set must be a valid role
	for _, r := range s.AvailableRoles {
		if !domain.IsValidRole(r) {
			return validation.Errors{
				"available_roles": validation.NewError("invalid_available_role", "available set contains an invalid role"),
			}
		}
	}

	return nil
}
