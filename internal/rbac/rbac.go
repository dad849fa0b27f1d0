// Package rbac evaluates role-based access checks against the role list
// stored on a user.
package rbac

import "github.com/newsforge/accountguard/internal/models"

// HasRole reports whether the role list grants at least one of the required
// roles. An empty requirement always passes; an empty role list never does
// unless the requirement is empty.
func HasRole(roles models.StringList, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		if roles.Contains(want) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role list grants the admin role.
func IsAdmin(roles models.StringList) bool {
	return HasRole(roles, models.RoleAdmin)
}

// CanModerate reports whether the role list grants moderator or admin.
func CanModerate(roles models.StringList) bool {
	return HasRole(roles, models.RoleModerator, models.RoleAdmin)
}

// ValidRole reports whether the name is part of the fixed role taxonomy.
func ValidRole(name string) bool {
	switch name {
	case models.RoleUser, models.RoleModerator, models.RoleAdmin:
		return true
	default:
		return false
	}
}
