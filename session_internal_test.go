package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateAccessors(t *testing.T) {
	assert.True(t, State{Status: StatusAuthenticated, User: &User{}}.Authenticated())
	assert.False(t, State{Status: StatusAuthenticated}.Authenticated(), "authenticated requires a user")
	assert.False(t, State{Status: StatusUnauthenticated}.Authenticated())

	assert.True(t, State{Status: StatusLoading}.Loading())
	assert.True(t, State{Status: StatusUnknown}.Loading(), "pre-hydration counts as not settled")
	assert.False(t, State{Status: StatusUnauthenticated}.Loading())
}

func TestSnapshotEmpty(t *testing.T) {
	var nilSnap *Snapshot
	assert.True(t, nilSnap.Empty())
	assert.True(t, (&Snapshot{}).Empty())

	now := time.Now()
	assert.False(t, (&Snapshot{Credential: "opaque-token", SavedAt: &now}).Empty())
}

func TestUserDisplayName(t *testing.T) {
	var nilUser *User
	assert.Equal(t, "", nilUser.DisplayName())

	assert.Equal(t, "Pat Reviewer", (&User{FirstName: "Pat", LastName: "Reviewer"}).DisplayName())
	assert.Equal(t, "Pat", (&User{FirstName: "Pat"}).DisplayName())
	assert.Equal(t, "pat@example.com", (&User{Email: "pat@example.com"}).DisplayName())
}
