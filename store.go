package session

import (
	"sync"
	"time"
)

// Store abstracts durable client-side persistence of the session snapshot.
// Implementations hold exactly one snapshot, carry no policy, and never talk
// to the network.
//
// A Load failure is equivalent to "no stored session" for callers: the
// Manager fails safe to logged out, never to a forged authenticated state.
type Store interface {
	Load() (*Snapshot, error)
	Save(snap *Snapshot) error
	Clear() error
}

// MemoryStore is an in-process Store. Sessions kept here do not survive a
// restart; it backs tests and ephemeral embeddings.
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored snapshot, or nil when none was saved.
func (s *MemoryStore) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil {
		return nil, nil
	}

	clone := *s.snap
	clone.User = s.snap.User.Clone()
	return &clone, nil
}

// Save stores the snapshot, stamping SavedAt.
func (s *MemoryStore) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap == nil {
		s.snap = nil
		return nil
	}

	clone := *snap
	clone.User = snap.User.Clone()
	now := time.Now()
	clone.SavedAt = &now
	s.snap = &clone
	return nil
}

// Clear drops the stored snapshot.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}
