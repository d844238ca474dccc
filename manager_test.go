package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(role session.UserRole) *session.User {
	return &session.User{
		ID:            uuid.New(),
		Role:          role,
		FirstName:     "Pat",
		LastName:      "Reviewer",
		Email:         "pat@example.com",
		InstitutionID: uuid.New(),
	}
}

func newManager(t *testing.T, store session.Store, identity session.IdentityAPI, opts ...session.ManagerOption) *session.Manager {
	t.Helper()
	opts = append([]session.ManagerOption{session.WithManagerLogger(silentLogger{})}, opts...)
	return session.NewManager(store, identity, opts...)
}

func TestInitializeWithoutStoredSession(t *testing.T) {
	identity := &stubIdentityAPI{}
	manager := newManager(t, session.NewMemoryStore(), identity)

	require.Equal(t, session.StatusUnknown, manager.State().Status)

	manager.Initialize(context.Background())

	assert.Equal(t, session.StatusUnauthenticated, manager.State().Status)
	assert.Nil(t, manager.CurrentUser())

	validate, _, _ := identity.calls()
	assert.Zero(t, validate, "no credential means no validation round trip")
}

func TestInitializeValidatesStoredCredential(t *testing.T) {
	user := testUser(session.RoleReviewer)
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(&session.Snapshot{Credential: "opaque-token"}))

	gate := make(chan struct{})
	identity := &stubIdentityAPI{
		validateFn: func(_ context.Context, credential string) (*session.User, error) {
			assert.Equal(t, "opaque-token", credential)
			<-gate
			return user, nil
		},
	}

	manager := newManager(t, store, identity)
	manager.Initialize(context.Background())

	assert.Equal(t, session.StatusLoading, manager.State().Status)

	close(gate)
	manager.Wait()

	state := manager.State()
	require.Equal(t, session.StatusAuthenticated, state.Status)
	require.NotNil(t, state.User)
	assert.Equal(t, user.ID, state.User.ID)

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "opaque-token", snap.Credential)
	require.NotNil(t, snap.User)
	assert.Equal(t, user.Email, snap.User.Email)
}

func TestInitializeExpiredCredentialClearsStore(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(&session.Snapshot{Credential: "stale-token"}))

	identity := &stubIdentityAPI{
		validateFn: func(context.Context, string) (*session.User, error) {
			return nil, session.ErrSessionExpired
		},
	}

	sink := &recordingSink{}
	manager := newManager(t, store, identity, session.WithManagerActivitySink(sink))
	manager.Initialize(context.Background())
	manager.Wait()

	assert.Equal(t, session.StatusUnauthenticated, manager.State().Status)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.True(t, snap.Empty(), "expired session must not survive in storage")

	assert.Contains(t, sink.types(), session.ActivityEventExpired)
}

func TestInitializeIsIdempotent(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(&session.Snapshot{Credential: "opaque-token"}))

	gate := make(chan struct{})
	identity := &stubIdentityAPI{
		validateFn: func(context.Context, string) (*session.User, error) {
			<-gate
			return testUser(session.RoleReviewer), nil
		},
	}

	manager := newManager(t, store, identity)
	manager.Initialize(context.Background())
	manager.Initialize(context.Background())
	manager.Initialize(context.Background())

	close(gate)
	manager.Wait()

	validate, _, _ := identity.calls()
	assert.Equal(t, 1, validate, "concurrent initializes coalesce into one validation")
	assert.Equal(t, session.StatusAuthenticated, manager.State().Status)
}

func TestInitializeSkipsNetworkForLocallyExpiredJWT(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	store := session.NewMemoryStore()
	require.NoError(t, store.Save(&session.Snapshot{Credential: signed}))

	identity := &stubIdentityAPI{}
	manager := newManager(t, store, identity,
		session.WithManagerClock(func() time.Time { return now }))

	manager.Initialize(context.Background())
	manager.Wait()

	assert.Equal(t, session.StatusUnauthenticated, manager.State().Status)

	validate, _, _ := identity.calls()
	assert.Zero(t, validate, "locally expired credential must not hit the identity API")

	snap, err := store.Load()
	require.NoError(t, err)
	assert.True(t, snap.Empty())
}

func TestInitializeTreatsLoadFailureAsNoSession(t *testing.T) {
	store := &failingStore{
		Store:   session.NewMemoryStore(),
		loadErr: session.ErrStorageCorrupt,
	}

	manager := newManager(t, store, &stubIdentityAPI{})
	manager.Initialize(context.Background())

	assert.Equal(t, session.StatusUnauthenticated, manager.State().Status)
}

func TestLoginSuccess(t *testing.T) {
	user := testUser(session.RoleReviewer)
	store := session.NewMemoryStore()

	identity := &stubIdentityAPI{
		loginFn: func(_ context.Context, identifier, password string) (string, *session.User, error) {
			assert.Equal(t, "pat@example.com", identifier)
			assert.Equal(t, "sup3rs3cret!", password)
			return "fresh-token", user, nil
		},
	}

	sink := &recordingSink{}
	manager := newManager(t, store, identity, session.WithManagerActivitySink(sink))
	manager.Initialize(context.Background())

	var seen []session.Status
	var mu sync.Mutex
	unsubscribe := manager.Subscribe(func(state session.State) {
		mu.Lock()
		seen = append(seen, state.Status)
		mu.Unlock()
	})
	defer unsubscribe()

	err := manager.Login(context.Background(), session.LoginInput{
		Identifier: "pat@example.com",
		Password:   "sup3rs3cret!",
	})
	require.NoError(t, err)

	state := manager.State()
	require.True(t, state.Authenticated())
	assert.Equal(t, user.Email, state.User.Email)

	mu.Lock()
	assert.Equal(t, []session.Status{session.StatusLoading, session.StatusAuthenticated}, seen)
	mu.Unlock()

	snap, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Equal(t, "fresh-token", snap.Credential)

	assert.Contains(t, sink.types(), session.ActivityEventLoginSuccess)
}

func TestLoginFailureSurfacesAuthError(t *testing.T) {
	identity := &stubIdentityAPI{
		loginFn: func(context.Context, string, string) (string, *session.User, error) {
			return "", nil, session.ErrInvalidCredentials
		},
	}

	manager := newManager(t, session.NewMemoryStore(), identity)
	manager.Initialize(context.Background())

	err := manager.Login(context.Background(), session.LoginInput{
		Identifier: "pat@example.com",
		Password:   "wrong",
	})

	require.Error(t, err)
	assert.True(t, session.IsInvalidCredentials(err))
	assert.Equal(t, session.StatusUnauthenticated, manager.State().Status)
	assert.Nil(t, manager.CurrentUser())
}

func TestLoginRejectsInvalidPayload(t *testing.T) {
	identity := &stubIdentityAPI{}
	manager := newManager(t, session.NewMemoryStore(), identity)
	manager.Initialize(context.Background())

	err := manager.Login(context.Background(), session.LoginInput{
		Identifier: "not-an-email",
		Password:   "whatever",
	})

	require.Error(t, err)

	_, login, _ := identity.calls()
	assert.Zero(t, login, "invalid payloads never reach the identity API")
}

func TestLoginStorageFailureIsNonFatal(t *testing.T) {
	user := testUser(session.RoleCoordinator)
	store := &failingStore{
		Store:   session.NewMemoryStore(),
		saveErr: errors.New("disk full"),
	}

	identity := &stubIdentityAPI{
		loginFn: func(context.Context, string, string) (string, *session.User, error) {
			return "fresh-token", user, nil
		},
	}

	manager := newManager(t, store, identity)
	manager.Initialize(context.Background())

	err := manager.Login(context.Background(), session.LoginInput{
		Identifier: "pat@example.com",
		Password:   "sup3rs3cret!",
	})

	require.Error(t, err)
	assert.True(t, session.IsStorageError(err), "save failure surfaces as a storage warning")
	assert.True(t, manager.State().Authenticated(), "in-memory session stays usable")
}

func TestValidateStorageFailureSurfacesThroughSink(t *testing.T) {
	store := &failingStore{
		Store:   session.NewMemoryStore(),
		saveErr: errors.New("disk full"),
	}
	require.NoError(t, store.Store.Save(&session.Snapshot{Credential: "opaque-token"}))

	identity := &stubIdentityAPI{
		validateFn: func(context.Context, string) (*session.User, error) {
			return testUser(session.RoleReviewer), nil
		},
	}

	sink := &recordingSink{}
	manager := newManager(t, store, identity, session.WithManagerActivitySink(sink))
	manager.Initialize(context.Background())
	manager.Wait()

	require.True(t, manager.State().Authenticated(), "a persistence failure never costs the session")

	var validated *session.ActivityEvent
	for _, event := range sink.all() {
		if event.EventType == session.ActivityEventValidated {
			validated = &event
			break
		}
	}
	require.NotNil(t, validated)
	assert.Contains(t, validated.Metadata, "storage_error")
}

func TestLogoutWinsOverInFlightValidation(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(&session.Snapshot{Credential: "opaque-token"}))

	gate := make(chan struct{})
	identity := &stubIdentityAPI{
		validateFn: func(context.Context, string) (*session.User, error) {
			<-gate
			return testUser(session.RoleReviewer), nil
		},
	}

	manager := newManager(t, store, identity)
	manager.Initialize(context.Background())
	require.Equal(t, session.StatusLoading, manager.State().Status)

	manager.Logout(context.Background())
	assert.Equal(t, session.StatusUnauthenticated, manager.State().Status)

	// the slow validation resolves after logout and must be discarded
	close(gate)
	manager.Wait()

	assert.Equal(t, session.StatusUnauthenticated, manager.State().Status)
	assert.Nil(t, manager.CurrentUser())

	snap, err := store.Load()
	require.NoError(t, err)
	assert.True(t, snap.Empty(), "a stale validation must not resurrect the stored session")
}

func TestLogoutClearsSessionAndNotifiesRemote(t *testing.T) {
	user := testUser(session.RoleReviewer)
	store := session.NewMemoryStore()

	identity := &stubIdentityAPI{
		loginFn: func(context.Context, string, string) (string, *session.User, error) {
			return "fresh-token", user, nil
		},
	}

	sink := &recordingSink{}
	manager := newManager(t, store, identity, session.WithManagerActivitySink(sink))
	manager.Initialize(context.Background())

	require.NoError(t, manager.Login(context.Background(), session.LoginInput{
		Identifier: "pat@example.com",
		Password:   "sup3rs3cret!",
	}))

	hookRuns := 0
	manager.OnLogout(func() { hookRuns++ })

	manager.Logout(context.Background())

	assert.Equal(t, session.StatusUnauthenticated, manager.State().Status)
	assert.Equal(t, 1, hookRuns)

	_, _, logout := identity.calls()
	assert.Equal(t, 1, logout, "remote logout is attempted when a credential exists")

	snap, err := store.Load()
	require.NoError(t, err)
	assert.True(t, snap.Empty())

	assert.Contains(t, sink.types(), session.ActivityEventLogout)
}

func TestRefreshRevalidatesCurrentCredential(t *testing.T) {
	first := testUser(session.RoleReviewer)
	second := testUser(session.RoleAdmin)

	calls := 0
	identity := &stubIdentityAPI{
		loginFn: func(context.Context, string, string) (string, *session.User, error) {
			return "fresh-token", first, nil
		},
		validateFn: func(context.Context, string) (*session.User, error) {
			calls++
			return second, nil
		},
	}

	manager := newManager(t, session.NewMemoryStore(), identity)
	manager.Initialize(context.Background())
	require.NoError(t, manager.Login(context.Background(), session.LoginInput{
		Identifier: "pat@example.com",
		Password:   "sup3rs3cret!",
	}))

	manager.Refresh(context.Background())
	manager.Wait()

	state := manager.State()
	require.True(t, state.Authenticated())
	assert.Equal(t, session.RoleAdmin, state.User.Role, "refresh adopts the server's current profile")
	assert.Equal(t, 1, calls)
}

func TestRefreshFailureLandsUnauthenticated(t *testing.T) {
	identity := &stubIdentityAPI{
		loginFn: func(context.Context, string, string) (string, *session.User, error) {
			return "fresh-token", testUser(session.RoleReviewer), nil
		},
		validateFn: func(context.Context, string) (*session.User, error) {
			return nil, session.ErrSessionRevoked
		},
	}

	store := session.NewMemoryStore()
	sink := &recordingSink{}
	manager := newManager(t, store, identity, session.WithManagerActivitySink(sink))
	manager.Initialize(context.Background())
	require.NoError(t, manager.Login(context.Background(), session.LoginInput{
		Identifier: "pat@example.com",
		Password:   "sup3rs3cret!",
	}))

	manager.Refresh(context.Background())
	manager.Wait()

	assert.Equal(t, session.StatusUnauthenticated, manager.State().Status)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.True(t, snap.Empty())

	assert.Contains(t, sink.types(), session.ActivityEventRefreshFailure)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	identity := &stubIdentityAPI{
		loginFn: func(context.Context, string, string) (string, *session.User, error) {
			return "fresh-token", testUser(session.RoleReviewer), nil
		},
	}

	manager := newManager(t, session.NewMemoryStore(), identity)

	notified := 0
	unsubscribe := manager.Subscribe(func(session.State) { notified++ })

	manager.Initialize(context.Background())
	assert.Equal(t, 1, notified)

	unsubscribe()

	require.NoError(t, manager.Login(context.Background(), session.LoginInput{
		Identifier: "pat@example.com",
		Password:   "sup3rs3cret!",
	}))
	assert.Equal(t, 1, notified, "unsubscribed observers receive nothing")
}

func TestTeardownResetsToUnknown(t *testing.T) {
	identity := &stubIdentityAPI{
		loginFn: func(context.Context, string, string) (string, *session.User, error) {
			return "fresh-token", testUser(session.RoleReviewer), nil
		},
	}

	manager := newManager(t, session.NewMemoryStore(), identity)
	manager.Initialize(context.Background())
	require.NoError(t, manager.Login(context.Background(), session.LoginInput{
		Identifier: "pat@example.com",
		Password:   "sup3rs3cret!",
	}))

	manager.Teardown()

	assert.Equal(t, session.StatusUnknown, manager.State().Status)
	assert.Nil(t, manager.CurrentUser())
}
