package store

import (
	"context"
	"sync"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// MemorySessionStore is an in-memory implementation of the SessionStore
// interface. It holds the serialized form so load semantics (malformed data
// treated as absence) match the Redis store exactly.
type MemorySessionStore struct {
	data map[core.CredentialKind][]byte
	mu   sync.RWMutex
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		data: make(map[core.CredentialKind][]byte),
	}
}

// Store persists the session under the slot for its credential kind.
func (s *MemorySessionStore) Store(ctx context.Context, kind core.CredentialKind, session *core.Session) error {
	raw, err := encodeSession(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[kind] = raw
	return nil
}

// Load returns the stored session, or (nil, nil) when absent or malformed.
// Corrupt entries are cleared.
func (s *MemorySessionStore) Load(ctx context.Context, kind core.CredentialKind) (*core.Session, error) {
	s.mu.RLock()
	raw, ok := s.data[kind]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	session, err := decodeSession(raw)
	if err != nil {
		s.mu.Lock()
		delete(s.data, kind)
		s.mu.Unlock()
		return nil, nil
	}

	return session, nil
}

// Clear removes the session for the given credential kind.
func (s *MemorySessionStore) Clear(ctx context.Context, kind core.CredentialKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, kind)
	return nil
}

var _ ports.SessionStore = (*MemorySessionStore)(nil)
