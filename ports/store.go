package ports

import (
	"context"

	"github.com/layer-3/garuda/core"
)

// SessionStore persists the current session, one slot per credential kind.
// Wallet, OAuth and password sessions live under distinct keys and are never
// conflated here; only the identity resolver converges them.
type SessionStore interface {
	Store(ctx context.Context, kind core.CredentialKind, session *core.Session) error

	// Load returns (nil, nil) when no usable session is stored. Malformed
	// data is cleared and reported as absence, never as an error.
	Load(ctx context.Context, kind core.CredentialKind) (*core.Session, error)

	Clear(ctx context.Context, kind core.CredentialKind) error
}

// NonceStore issues the anti-replay nonce. GetOrCreate is idempotent for the
// store's lifetime: it returns the existing nonce if one was already issued.
// Clear rotates it.
type NonceStore interface {
	GetOrCreate(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}
