package session

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleGuest, RoleReviewer, RoleCoordinator, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanRead checks if this role can read resources
func (r UserRole) CanRead() bool {
	switch r {
	case RoleGuest, RoleReviewer, RoleCoordinator, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanComment checks if this role can comment on reviews
func (r UserRole) CanComment() bool {
	switch r {
	case RoleReviewer, RoleCoordinator, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanEdit checks if this role can edit resources
func (r UserRole) CanEdit() bool {
	switch r {
	case RoleCoordinator, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanCreate checks if this role can create resources
func (r UserRole) CanCreate() bool {
	switch r {
	case RoleCoordinator, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanDelete checks if this role can delete resources
func (r UserRole) CanDelete() bool {
	switch r {
	case RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleGuest:       0,
		RoleReviewer:    1,
		RoleCoordinator: 2,
		RoleAdmin:       3,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// AllRoles returns all predefined roles in hierarchical order
func AllRoles() []UserRole {
	return []UserRole{
		RoleGuest,
		RoleReviewer,
		RoleCoordinator,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// AllowList is the enumerated set of roles permitted to view a guarded
// surface. An empty allow-list permits every authenticated user.
type AllowList []UserRole

// Allows reports whether the role may view the guarded surface.
func (a AllowList) Allows(role UserRole) bool {
	if len(a) == 0 {
		return true
	}
	for _, r := range a {
		if r == role {
			return true
		}
	}
	return false
}

// Empty reports whether the allow-list imposes no role restriction.
func (a AllowList) Empty() bool {
	return len(a) == 0
}
