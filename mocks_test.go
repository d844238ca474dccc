package session_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-session"
)

// stubIdentityAPI implements session.IdentityAPI with per-operation
// functions plus call counters. A nil function fails the call loudly so a
// test never silently exercises an operation it did not stub.
type stubIdentityAPI struct {
	mu            sync.Mutex
	validateFn    func(ctx context.Context, credential string) (*session.User, error)
	loginFn       func(ctx context.Context, identifier, password string) (string, *session.User, error)
	logoutFn      func(ctx context.Context, credential string) error
	validateCalls int
	loginCalls    int
	logoutCalls   int
}

func (s *stubIdentityAPI) ValidateSession(ctx context.Context, credential string) (*session.User, error) {
	s.mu.Lock()
	s.validateCalls++
	fn := s.validateFn
	s.mu.Unlock()

	if fn == nil {
		panic("unexpected ValidateSession call")
	}
	return fn(ctx, credential)
}

func (s *stubIdentityAPI) Login(ctx context.Context, identifier, password string) (string, *session.User, error) {
	s.mu.Lock()
	s.loginCalls++
	fn := s.loginFn
	s.mu.Unlock()

	if fn == nil {
		panic("unexpected Login call")
	}
	return fn(ctx, identifier, password)
}

func (s *stubIdentityAPI) Logout(ctx context.Context, credential string) error {
	s.mu.Lock()
	s.logoutCalls++
	fn := s.logoutFn
	s.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(ctx, credential)
}

func (s *stubIdentityAPI) calls() (validate, login, logout int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateCalls, s.loginCalls, s.logoutCalls
}

// failingStore fails selected operations so tests can exercise the fail-safe
// paths.
type failingStore struct {
	session.Store
	loadErr  error
	saveErr  error
	clearErr error
}

func (s *failingStore) Load() (*session.Snapshot, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.Store.Load()
}

func (s *failingStore) Save(snap *session.Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Store.Save(snap)
}

func (s *failingStore) Clear() error {
	if s.clearErr != nil {
		return s.clearErr
	}
	return s.Store.Clear()
}

// recordingSink collects activity events.
type recordingSink struct {
	mu     sync.Mutex
	events []session.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event session.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) all() []session.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]session.ActivityEvent{}, s.events...)
}

func (s *recordingSink) types() []session.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]session.ActivityEventType, 0, len(s.events))
	for _, event := range s.events {
		types = append(types, event.EventType)
	}
	return types
}

// recordingNavigator collects redirect intents.
type recordingNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, path)
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.targets...)
}

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}
