package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// Subscriber receives the state produced by a transition. Subscribers run
// synchronously with respect to the transition: the state they receive is
// never stale.
type Subscriber func(State)

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithManagerLogger overrides the logger.
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithManagerClock injects a custom clock (useful for tests).
func WithManagerClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithManagerActivitySink sets the ActivitySink used to publish session events.
func WithManagerActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// WithManagerMetrics attaches transition counters.
func WithManagerMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// Manager is the process-wide authentication state machine. It owns the
// Session (credential plus validated user); every mutation goes through its
// operations and every observer reads through State/CurrentUser/Subscribe.
type Manager struct {
	mu           sync.Mutex
	store        Store
	identity     IdentityAPI
	state        State
	snap         Snapshot
	epoch        uint64
	validating   bool
	transitions  map[Status]map[Status]struct{}
	subscribers  map[int]Subscriber
	nextSubID    int
	logoutHooks  map[int]func()
	nextHookID   int
	logger       Logger
	activitySink ActivitySink
	metrics      *Metrics
	now          func() time.Time
	wg           sync.WaitGroup
}

// NewManager creates a Manager in the Unknown state. Call Initialize to
// hydrate from the store and start validation.
func NewManager(store Store, identity IdentityAPI, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		identity: identity,
		state:    State{Status: StatusUnknown},
		transitions: map[Status]map[Status]struct{}{
			StatusUnknown: {
				StatusLoading:         {},
				StatusUnauthenticated: {},
			},
			StatusLoading: {
				StatusAuthenticated:   {},
				StatusUnauthenticated: {},
			},
			StatusAuthenticated: {
				StatusLoading:         {},
				StatusUnauthenticated: {},
			},
			StatusUnauthenticated: {
				StatusLoading: {},
			},
		},
		subscribers:  map[int]Subscriber{},
		logoutHooks:  map[int]func(){},
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// State returns the current state. Never blocks on network activity.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns the validated user, or nil outside Authenticated.
func (m *Manager) CurrentUser() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.User
}

// Epoch returns the current session epoch. The epoch advances on every
// login and logout; asynchronous work scoped to a session should capture it
// and discard its result when the epoch has moved on.
func (m *Manager) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Subscribe registers fn for state changes and returns an unsubscribe
// function. Subscribers are invoked with the transitioned state, in
// transition order.
func (m *Manager) Subscribe(fn Subscriber) func() {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// OnLogout registers a hook that runs on every logout, before the logout
// notification reaches subscribers and atomically with the transition. The
// cache uses this to purge per-user entries. Hooks must not call back into
// the Manager. Returns an unregister function.
func (m *Manager) OnLogout(hook func()) func() {
	if hook == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextHookID
	m.nextHookID++
	m.logoutHooks[id] = hook
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.logoutHooks, id)
		m.mu.Unlock()
	}
}

// Initialize hydrates the session from the Store synchronously, then
// validates any stored credential against the identity API in the
// background. Status becomes Loading when a credential was found, otherwise
// Unauthenticated.
//
// Initialize is idempotent: a call while a validation is outstanding does
// nothing.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()

	if m.validating {
		m.mu.Unlock()
		return
	}

	snap, err := m.store.Load()
	if err != nil {
		// fail safe to logged out, never to a forged session
		m.logger.Warn("session hydrate failed, treating as no session", "error", err)
		snap = nil
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Warn("session store clear failed", "error", clearErr)
		}
	}

	if snap.Empty() {
		m.transitionLocked(StatusUnauthenticated, nil)
		return
	}

	if m.credentialExpiredLocked(snap.Credential) {
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Warn("session store clear failed", "error", clearErr)
		}
		m.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventExpired,
			FromStatus: m.state.Status,
			ToStatus:   StatusUnauthenticated,
		})
		m.transitionLocked(StatusUnauthenticated, nil)
		return
	}

	m.snap = *snap
	m.validating = true
	epoch := m.epoch
	credential := snap.Credential
	m.wg.Add(1)
	m.transitionLocked(StatusLoading, nil)

	go m.validate(ctx, epoch, credential, ActivityEventExpired)
}

// Refresh revalidates the current credential against the identity API. Like
// Initialize it runs the network call in the background; a failure lands in
// Unauthenticated with the store cleared, never in a user-facing error.
func (m *Manager) Refresh(ctx context.Context) {
	m.mu.Lock()

	if m.validating || m.snap.Empty() {
		m.mu.Unlock()
		return
	}

	m.validating = true
	epoch := m.epoch
	credential := m.snap.Credential
	m.wg.Add(1)
	m.transitionLocked(StatusLoading, m.state.User)

	go m.validate(ctx, epoch, credential, ActivityEventRefreshFailure)
}

// validate resolves an outstanding Initialize/Refresh. Completions that
// lost an epoch race (logout or a new login happened meanwhile) are
// discarded. failureEvent is the activity event emitted when the identity
// API rejects the credential.
func (m *Manager) validate(ctx context.Context, epoch uint64, credential string, failureEvent ActivityEventType) {
	defer m.wg.Done()

	user, err := m.identity.ValidateSession(ctx, credential)

	m.mu.Lock()
	m.validating = false

	if m.epoch != epoch {
		m.mu.Unlock()
		m.logger.Debug("discarding stale session validation", "epoch", epoch)
		return
	}

	if err != nil {
		m.snap = Snapshot{}
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Warn("session store clear failed", "error", clearErr)
		}
		from := m.state.Status
		m.recordActivity(ctx, ActivityEvent{
			EventType:  failureEvent,
			FromStatus: from,
			ToStatus:   StatusUnauthenticated,
			Metadata:   map[string]any{"error": err.Error()},
		})
		m.transitionLocked(StatusUnauthenticated, nil)
		return
	}

	user.EnsureRole()
	if vErr := ValidateUser(user); vErr != nil {
		m.logger.Warn("identity API returned a suspect profile", "error", vErr)
	}
	m.snap.User = user
	var meta map[string]any
	if saveErr := m.store.Save(&Snapshot{Credential: credential, User: user}); saveErr != nil {
		// non-fatal: the in-memory session stays usable but will not
		// survive a restart; embedders can warn via the sink
		m.logger.Warn("failed to persist refreshed session", "error", saveErr)
		meta = map[string]any{"storage_error": wrapStorageFailure("save", saveErr).Error()}
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventValidated,
		UserID:     user.ID.String(),
		FromStatus: m.state.Status,
		ToStatus:   StatusAuthenticated,
		Metadata:   meta,
	})
	m.transitionLocked(StatusAuthenticated, user)
}

// Login authenticates against the identity API. On success the session is
// stored and status becomes Authenticated. On failure status returns to
// Unauthenticated and the AuthError is returned to the caller; retrying is
// the caller's choice.
//
// A storage failure after a successful login is returned as a non-fatal
// warning (check IsStorageError): the in-memory session stays usable but
// will not survive a restart.
func (m *Manager) Login(ctx context.Context, payload LoginPayload) error {
	if payload == nil {
		return goerrors.New("login payload is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	if v, ok := payload.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload").
				WithCode(goerrors.CodeBadRequest)
		}
	}

	m.mu.Lock()
	// a login supersedes any in-flight validation
	m.epoch++
	m.validating = false
	epoch := m.epoch
	m.transitionLocked(StatusLoading, nil)

	credential, user, err := m.identity.Login(ctx, payload.GetIdentifier(), payload.GetPassword())

	m.mu.Lock()
	if m.epoch != epoch {
		// a logout raced the identity call and wins
		m.mu.Unlock()
		m.logger.Debug("discarding superseded login response")
		return nil
	}

	if err != nil {
		m.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventLoginFailure,
			FromStatus: StatusLoading,
			ToStatus:   StatusUnauthenticated,
			Metadata:   map[string]any{"identifier": payload.GetIdentifier(), "error": err.Error()},
		})
		m.transitionLocked(StatusUnauthenticated, nil)
		m.logger.Error("login failed", "error", err)
		return err
	}

	user.EnsureRole()
	if vErr := ValidateUser(user); vErr != nil {
		m.logger.Warn("identity API returned a suspect profile", "error", vErr)
	}
	m.snap = Snapshot{Credential: credential, User: user}

	var saveErr error
	if err := m.store.Save(&Snapshot{Credential: credential, User: user}); err != nil {
		m.logger.Warn("failed to persist session after login", "error", err)
		saveErr = wrapStorageFailure("save", err)
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventLoginSuccess,
		UserID:     user.ID.String(),
		FromStatus: StatusLoading,
		ToStatus:   StatusAuthenticated,
		Metadata:   map[string]any{"identifier": payload.GetIdentifier()},
	})
	m.transitionLocked(StatusAuthenticated, user)

	return saveErr
}

// Logout clears the store, advances the epoch so in-flight validations and
// per-user cache producers are discarded, runs the registered purge hooks,
// and lands in Unauthenticated. Logout always wins over slower in-flight
// operations.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()

	m.epoch++
	m.validating = false
	credential := m.snap.Credential
	userID := ""
	if m.state.User != nil {
		userID = m.state.User.ID.String()
	}
	m.snap = Snapshot{}

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("session store clear failed", "error", err)
	}

	hooks := make([]func(), 0, len(m.logoutHooks))
	for _, hook := range m.logoutHooks {
		hooks = append(hooks, hook)
	}

	from := m.state.Status
	m.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventLogout,
		UserID:     userID,
		FromStatus: from,
		ToStatus:   StatusUnauthenticated,
	})

	for _, hook := range hooks {
		hook()
	}

	m.transitionLocked(StatusUnauthenticated, nil)

	if credential != "" && m.identity != nil {
		if err := m.identity.Logout(ctx, credential); err != nil {
			m.logger.Debug("remote logout failed", "error", err)
		}
	}
}

// Teardown resets the manager to its pre-initialize state and drops all
// subscribers and hooks. Intended for embeddings that rebuild the process
// state wholesale (tests, hot reloads).
func (m *Manager) Teardown() {
	m.mu.Lock()
	m.epoch++
	m.validating = false
	m.snap = Snapshot{}
	m.state = State{Status: StatusUnknown}
	m.subscribers = map[int]Subscriber{}
	m.logoutHooks = map[int]func(){}
	m.mu.Unlock()

	m.wg.Wait()
}

// Wait blocks until any outstanding background validation settles. Callers
// that need a settled state after Initialize/Refresh (tests, CLI embeddings)
// use it instead of polling.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// transitionLocked applies a status change and notifies subscribers. The
// caller must hold m.mu; the lock is released before subscribers run so they
// may read the manager. Transitions themselves stay serialized by m.mu.
func (m *Manager) transitionLocked(to Status, user *User) {
	from := m.state.Status

	if !m.canTransition(from, to) {
		m.mu.Unlock()
		m.logger.Error("refusing invalid session transition", "details", print.MaybePrettyJSON(map[string]any{
			"from": from,
			"to":   to,
		}))
		return
	}

	m.state = State{Status: to, User: user}
	if m.metrics != nil {
		m.metrics.ObserveTransition(from, to)
	}

	next := m.state
	subs := make([]Subscriber, 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

func (m *Manager) canTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if allowed, ok := m.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// credentialExpiredLocked is a local fast path: when the stored credential
// parses as a JWT whose exp already passed there is no point in a network
// round trip. The parse is unverified on purpose, it informs expiry only and
// is never trusted for identity.
func (m *Manager) credentialExpiredLocked(credential string) bool {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(credential, &claims); err != nil {
		// opaque (non-JWT) credential, let the identity API decide
		return false
	}

	if claims.ExpiresAt == nil {
		return false
	}

	return claims.ExpiresAt.Before(m.now())
}

func (m *Manager) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now()
	}
	if event.ID == "" {
		event.ID = newActivityEventID(event.OccurredAt)
	}

	sink := normalizeActivitySink(m.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("session activity sink failed", "error", err)
	}
}
