package session

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var stateCtxKey = &contextKey{"state"}

type contextKey struct {
	name string
}

// WithUserContext sets the User in the given context
func WithUserContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// UserFromContext finds the user from the context.
func UserFromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithStateContext sets the session State in the given context
func WithStateContext(r context.Context, state State) context.Context {
	return context.WithValue(r, stateCtxKey, state)
}

// StateFromContext extracts the session State from the context
func StateFromContext(ctx context.Context) (State, bool) {
	raw, ok := ctx.Value(stateCtxKey).(State)
	return raw, ok
}

// HasRole is a convenience check against the context user's role.
func HasRole(ctx context.Context, role UserRole) bool {
	user, ok := UserFromContext(ctx)
	if !ok || user == nil {
		return false
	}
	return user.Role == role
}

// CanAtLeast checks the context user's role against a minimum level.
func CanAtLeast(ctx context.Context, minRole UserRole) bool {
	user, ok := UserFromContext(ctx)
	if !ok || user == nil {
		return false
	}
	return user.Role.IsAtLeast(minRole)
}
