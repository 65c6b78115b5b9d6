package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/layer-3/garuda/ports"
)

// MemoryNonceStore issues the anti-replay nonce for one client context
// ("tab"). The nonce is stable for the store's lifetime: GetOrCreate keeps
// returning the first issued value until Clear rotates it.
type MemoryNonceStore struct {
	nonce string
	mu    sync.Mutex
}

// NewMemoryNonceStore creates a new nonce store.
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{}
}

// GetOrCreate returns the existing nonce if one was already issued, else
// generates, stores and returns a fresh one.
func (s *MemoryNonceStore) GetOrCreate(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nonce != "" {
		return s.nonce, nil
	}

	nonce, err := generateNonce()
	if err != nil {
		return "", err
	}
	s.nonce = nonce
	return nonce, nil
}

// Clear discards the current nonce so the next GetOrCreate issues a new one.
func (s *MemoryNonceStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce = ""
	return nil
}

// generateNonce returns 32 random bytes hex-encoded (256 bits of entropy).
func generateNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

var _ ports.NonceStore = (*MemoryNonceStore)(nil)
