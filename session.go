package session

import (
	"fmt"
	"time"
)

// Status is the session's authentication status. Exactly one status holds at
// any instant.
type Status string

const (
	// StatusUnknown is the initial pre-hydration status
	StatusUnknown Status = "unknown"
	// StatusLoading means a validation, login, or refresh is outstanding
	StatusLoading Status = "loading"
	// StatusAuthenticated means the credential was validated and a user is attached
	StatusAuthenticated Status = "authenticated"
	// StatusUnauthenticated means there is no usable session
	StatusUnauthenticated Status = "unauthenticated"
)

// State is the observable output of the Manager: the current status plus the
// validated user when authenticated.
type State struct {
	Status Status
	User   *User
}

// Authenticated reports whether the state carries a validated user.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Loading reports whether the status has not settled yet.
func (s State) Loading() bool {
	return s.Status == StatusUnknown || s.Status == StatusLoading
}

func (s State) String() string {
	if s.User == nil {
		return string(s.Status)
	}
	return fmt.Sprintf("%s user=%s role=%s", s.Status, s.User.ID, s.User.Role)
}

// Snapshot is the serialized session the Store persists: the opaque
// credential plus the last validated user profile. It is a cache of truth
// owned by the Manager, never an independent source.
type Snapshot struct {
	Credential string     `json:"credential,omitempty"`
	User       *User      `json:"user,omitempty"`
	SavedAt    *time.Time `json:"saved_at,omitempty"`
}

// Empty reports whether the snapshot carries no credential.
func (s *Snapshot) Empty() bool {
	return s == nil || s.Credential == ""
}
