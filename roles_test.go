package session_test

import (
	"testing"

	"github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
)

func TestRoleIsValid(t *testing.T) {
	for _, role := range session.AllRoles() {
		assert.True(t, role.IsValid(), string(role))
	}

	assert.False(t, session.UserRole("superuser").IsValid())
	assert.False(t, session.UserRole("").IsValid())
}

func TestRoleIsAtLeast(t *testing.T) {
	assert.True(t, session.RoleAdmin.IsAtLeast(session.RoleReviewer))
	assert.True(t, session.RoleCoordinator.IsAtLeast(session.RoleCoordinator))
	assert.False(t, session.RoleReviewer.IsAtLeast(session.RoleCoordinator))
	assert.False(t, session.RoleGuest.IsAtLeast(session.RoleReviewer))

	assert.False(t, session.UserRole("superuser").IsAtLeast(session.RoleGuest))
	assert.False(t, session.RoleAdmin.IsAtLeast("superuser"))
}

func TestRolePermissions(t *testing.T) {
	assert.True(t, session.RoleGuest.CanRead())
	assert.False(t, session.RoleGuest.CanComment())

	assert.True(t, session.RoleReviewer.CanComment())
	assert.False(t, session.RoleReviewer.CanEdit())

	assert.True(t, session.RoleCoordinator.CanEdit())
	assert.True(t, session.RoleCoordinator.CanCreate())
	assert.False(t, session.RoleCoordinator.CanDelete())

	assert.True(t, session.RoleAdmin.CanDelete())

	assert.False(t, session.UserRole("superuser").CanRead())
}

func TestParseRole(t *testing.T) {
	role, ok := session.ParseRole("coordinator")
	assert.True(t, ok)
	assert.Equal(t, session.RoleCoordinator, role)

	_, ok = session.ParseRole("superuser")
	assert.False(t, ok)
}

func TestAllowList(t *testing.T) {
	var open session.AllowList
	assert.True(t, open.Empty())
	assert.True(t, open.Allows(session.RoleGuest), "an empty list admits everyone")

	restricted := session.AllowList{session.RoleCoordinator, session.RoleAdmin}
	assert.False(t, restricted.Empty())
	assert.True(t, restricted.Allows(session.RoleAdmin))
	assert.False(t, restricted.Allows(session.RoleReviewer))
}

func TestEnsureRoleNormalizesUnknownRoles(t *testing.T) {
	user := testUser("superuser")
	user.EnsureRole()
	assert.Equal(t, session.RoleGuest, user.Role)

	user = testUser(session.RoleAdmin)
	user.EnsureRole()
	assert.Equal(t, session.RoleAdmin, user.Role)
}
