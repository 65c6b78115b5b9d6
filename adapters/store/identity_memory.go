package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// MemoryIdentityStore is an in-memory implementation of the IdentityStore
// interface. All operations are idempotent under retry; uniqueness
// invariants surface as core.ErrIdentityConflict.
type MemoryIdentityStore struct {
	byID     map[string]*core.CanonicalUser
	byEmail  map[string]string
	byWallet map[string]string
	mu       sync.Mutex
}

// NewMemoryIdentityStore creates a new in-memory identity store.
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{
		byID:     make(map[string]*core.CanonicalUser),
		byEmail:  make(map[string]string),
		byWallet: make(map[string]string),
	}
}

// FindByID returns the user with the given ID, or (nil, nil).
func (s *MemoryIdentityStore) FindByID(ctx context.Context, id string) (*core.CanonicalUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return user.Clone(), nil
}

// FindByAddress returns the user with the address in LinkedWallets, or
// (nil, nil).
func (s *MemoryIdentityStore) FindByAddress(ctx context.Context, address string) (*core.CanonicalUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byWallet[core.NormalizeKey(address)]
	if !ok {
		return nil, nil
	}
	return s.byID[id].Clone(), nil
}

// FindByEmail returns the user carrying the email as email or primary key,
// or (nil, nil).
func (s *MemoryIdentityStore) FindByEmail(ctx context.Context, email string) (*core.CanonicalUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[core.NormalizeKey(email)]
	if !ok {
		return nil, nil
	}
	return s.byID[id].Clone(), nil
}

// CreateUser inserts a new canonical user. Returns core.ErrIdentityConflict
// if the email or any linked wallet already belongs to another user.
func (s *MemoryIdentityStore) CreateUser(ctx context.Context, user *core.CanonicalUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[user.ID]; exists {
		return nil // retry of a committed create
	}

	email := core.NormalizeKey(user.Email)
	if email == "" && looksLikeEmail(user.PrimaryKey) {
		email = core.NormalizeKey(user.PrimaryKey)
	}
	if email != "" {
		if _, taken := s.byEmail[email]; taken {
			return core.ErrIdentityConflict
		}
	}
	for _, w := range user.LinkedWallets {
		if _, taken := s.byWallet[w]; taken {
			return core.ErrIdentityConflict
		}
	}

	cp := user.Clone()
	s.byID[cp.ID] = cp
	if email != "" {
		s.byEmail[email] = cp.ID
	}
	for _, w := range cp.LinkedWallets {
		s.byWallet[w] = cp.ID
	}
	return nil
}

// LinkWallet attaches the address to the user. A no-op when already linked
// to the same user; core.ErrIdentityConflict when linked to another.
func (s *MemoryIdentityStore) LinkWallet(ctx context.Context, userID, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	address = core.NormalizeKey(address)
	if owner, taken := s.byWallet[address]; taken {
		if owner == userID {
			return nil
		}
		return core.ErrIdentityConflict
	}

	user, ok := s.byID[userID]
	if !ok {
		return core.ErrIdentityConflict
	}

	user.AddWallet(address)
	user.UpdatedAt = time.Now()
	s.byWallet[address] = userID
	return nil
}

// SetProfile updates email, display name and verification state. Only
// non-empty fields overwrite; an email move re-indexes.
func (s *MemoryIdentityStore) SetProfile(ctx context.Context, userID, email, displayName string, emailVerified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return core.ErrIdentityConflict
	}

	if email = core.NormalizeKey(email); email != "" && email != user.Email {
		if owner, taken := s.byEmail[email]; taken && owner != userID {
			return core.ErrIdentityConflict
		}
		if user.Email != "" {
			delete(s.byEmail, user.Email)
		}
		user.Email = email
		s.byEmail[email] = userID
	}
	if displayName != "" {
		user.DisplayName = displayName
	}
	if emailVerified {
		user.EmailVerified = true
	}
	user.UpdatedAt = time.Now()
	return nil
}

// TouchUpdatedAt refreshes the user's update timestamp.
func (s *MemoryIdentityStore) TouchUpdatedAt(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.byID[userID]; ok {
		user.UpdatedAt = time.Now()
	}
	return nil
}

func looksLikeEmail(key string) bool {
	for i := 0; i < len(key); i++ {
		if key[i] == '@' {
			return true
		}
	}
	return false
}

var _ ports.IdentityStore = (*MemoryIdentityStore)(nil)

// MemoryWalletRegistry is an in-memory wallet-to-user mapping, standing in
// for the external subsystem that links wallets outside the login path.
type MemoryWalletRegistry struct {
	owners map[string]string
	mu     sync.RWMutex
}

// NewMemoryWalletRegistry creates a new registry.
func NewMemoryWalletRegistry() *MemoryWalletRegistry {
	return &MemoryWalletRegistry{owners: make(map[string]string)}
}

// Put records that the address belongs to the user.
func (r *MemoryWalletRegistry) Put(address, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[core.NormalizeKey(address)] = userID
}

// Owner returns the owning user ID, or "" when unmapped.
func (r *MemoryWalletRegistry) Owner(ctx context.Context, address string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owners[core.NormalizeKey(address)], nil
}

var _ ports.WalletRegistry = (*MemoryWalletRegistry)(nil)
