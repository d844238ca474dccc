package session

import (
	"strings"

	"github.com/google/uuid"
)

// UserRole is the user's platform role
type UserRole string

const (
	// RoleGuest can only view public surfaces
	RoleGuest UserRole = "guest"
	// RoleReviewer participates in accreditation reviews (view, comment)
	RoleReviewer UserRole = "reviewer"
	// RoleCoordinator manages assessments for an institution (view, edit, create)
	RoleCoordinator UserRole = "coordinator"
	// RoleAdmin administers the institution account (view, edit, create, delete)
	RoleAdmin UserRole = "admin"
)

// User is the authenticated user's profile as reported by the identity API.
// The client never mutates it; a refresh replaces the whole value.
type User struct {
	ID            uuid.UUID `json:"id,omitempty"`
	Role          UserRole  `json:"role,omitempty"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone_number,omitempty"`
	InstitutionID uuid.UUID `json:"institution_id,omitempty"`
}

// DisplayName returns the user's name for header widgets, falling back to
// the email when no name was provided.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}

	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	return u.Email
}

// EnsureRole normalizes a missing or unknown role to guest so a malformed
// server payload can never widen permissions.
func (u *User) EnsureRole() {
	if u == nil {
		return
	}
	if !u.Role.IsValid() {
		u.Role = RoleGuest
	}
}

// Clone returns a copy so subscribers can hold onto the value without
// observing later replacements.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
