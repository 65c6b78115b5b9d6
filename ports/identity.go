package ports

import (
	"context"

	"github.com/layer-3/garuda/core"
)

// IdentityStore is the durable identity backend. All operations must be
// idempotent under retry. Find methods return (nil, nil) when no record
// matches. CreateUser and LinkWallet return core.ErrIdentityConflict when a
// uniqueness invariant (one user per email, one user per wallet) would break.
type IdentityStore interface {
	FindByID(ctx context.Context, id string) (*core.CanonicalUser, error)
	FindByAddress(ctx context.Context, address string) (*core.CanonicalUser, error)
	FindByEmail(ctx context.Context, email string) (*core.CanonicalUser, error)

	CreateUser(ctx context.Context, user *core.CanonicalUser) error
	LinkWallet(ctx context.Context, userID, address string) error
	SetProfile(ctx context.Context, userID, email, displayName string, emailVerified bool) error
	TouchUpdatedAt(ctx context.Context, userID string) error
}

// WalletRegistry exposes another subsystem's wallet-to-user mapping, used to
// adopt wallets that were linked outside the login path.
type WalletRegistry interface {
	// Owner returns the user ID a wallet belongs to, or "" when unmapped.
	Owner(ctx context.Context, address string) (string, error)
}
