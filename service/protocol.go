// Package service holds the authentication business logic: the session
// protocol, the reconnect coordinator, the identity resolver and the balance
// refresher.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/internal/eth"
	"github.com/layer-3/garuda/ports"
)

// SessionProtocol orchestrates nonce issuance, message construction,
// signature verification and session persistence. Validation paths are cheap
// local checks; only Issue reaches out to the signer, so the user is
// prompted for a signature strictly when necessary.
type SessionProtocol struct {
	provider ports.WalletProvider
	sessions ports.SessionStore
	nonces   ports.NonceStore

	ttl time.Duration
	now func() time.Time
}

// NewSessionProtocol creates a new session protocol with the default 7-day
// session lifetime.
func NewSessionProtocol(provider ports.WalletProvider, sessions ports.SessionStore, nonces ports.NonceStore) *SessionProtocol {
	return &SessionProtocol{
		provider: provider,
		sessions: sessions,
		nonces:   nonces,
		ttl:      core.DefaultSessionTTL,
		now:      time.Now,
	}
}

// Issue runs one signing ceremony for the address: obtains the nonce, builds
// the canonical message, requests a signature (suspends until the signer
// responds or declines), verifies the signature binds to the address, then
// builds and persists the session. A decline surfaces as
// core.ErrUserRejected; any other signer fault as core.ErrSigner.
func (p *SessionProtocol) Issue(ctx context.Context, address string) (*core.Session, error) {
	nonce, err := p.nonces.GetOrCreate(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtain nonce: %w", err)
	}

	now := p.now()
	msg := core.BuildMessage(address, nonce, now.UnixMilli())

	signature, err := p.provider.SignMessage(ctx, address, msg.Text)
	if err != nil {
		if errors.Is(err, core.ErrUserRejected) {
			return nil, core.ErrUserRejected
		}
		return nil, fmt.Errorf("%w: %v", core.ErrSigner, err)
	}

	if !eth.Verify(msg.Text, signature, address) {
		return nil, core.ErrInvalidSignature
	}

	session := &core.Session{
		IdentityKey: core.NormalizeKey(address),
		Signature:   signature,
		Message:     msg,
		ExpiresAt:   now.Add(p.ttl),
	}

	if err := p.sessions.Store(ctx, core.CredentialWallet, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	return session, nil
}

// Validate fails closed: a nil session, a session past its expiry, or a
// signature that does not recover to the identity key all invalidate the
// whole session. Expiry and signature checks are both mandatory.
func (p *SessionProtocol) Validate(session *core.Session) bool {
	if session == nil {
		return false
	}
	if session.Expired(p.now()) {
		return false
	}
	return eth.Verify(session.Message.Text, session.Signature, session.IdentityKey)
}

// RevalidateAndMaybeReuse loads the stored wallet session and returns it for
// reuse when it validates and was issued for the given address. Returns
// (nil, nil) otherwise, forcing a fresh Issue.
func (p *SessionProtocol) RevalidateAndMaybeReuse(ctx context.Context, address string) (*core.Session, error) {
	stored, err := p.sessions.Load(ctx, core.CredentialWallet)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !p.Validate(stored) {
		return nil, nil
	}
	if stored.IdentityKey != core.NormalizeKey(address) {
		return nil, nil
	}
	return stored, nil
}

// IssueExternal records a session for a non-wallet credential. The proof of
// control lives with the external provider, so the signature fields stay
// empty and wallet validation never applies to it.
func (p *SessionProtocol) IssueExternal(ctx context.Context, kind core.CredentialKind, identityKey string) (*core.Session, error) {
	session := &core.Session{
		IdentityKey: core.NormalizeKey(identityKey),
		ExpiresAt:   p.now().Add(p.ttl),
	}
	if err := p.sessions.Store(ctx, kind, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return session, nil
}

// Teardown clears the wallet session and the nonce.
func (p *SessionProtocol) Teardown(ctx context.Context) error {
	return errors.Join(
		p.sessions.Clear(ctx, core.CredentialWallet),
		p.nonces.Clear(ctx),
	)
}
