package core

import (
	"strings"
	"time"
)

// CredentialKind identifies the source of a proof of control.
type CredentialKind string

const (
	CredentialWallet   CredentialKind = "wallet"
	CredentialOAuth    CredentialKind = "oauth"
	CredentialPassword CredentialKind = "password"
)

// DefaultSessionTTL is how long an issued session remains valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// AuthMessage is the canonical message presented to the signer. Immutable
// once built; it exists only for the duration of one signing ceremony.
type AuthMessage struct {
	Text            string `json:"text"`
	TimestampMillis int64  `json:"timestampMillis"`
	Nonce           string `json:"nonce"`
}

// Session is a time-bounded, signature-backed proof of control over an
// identity key. Sessions for different credential kinds are stored under
// distinct keys and never conflated by the store.
type Session struct {
	IdentityKey string      `json:"identityKey"`
	Signature   string      `json:"signature"`
	Message     AuthMessage `json:"authMessage"`
	ExpiresAt   time.Time   `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at the given
// instant. A session expiring exactly at now counts as expired.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Credential is one proof-of-control fact. Ephemeral; it exists only inside
// one authentication attempt.
type Credential struct {
	Kind        CredentialKind
	IdentityKey string
	VerifiedAt  time.Time
}

// NormalizeKey lowercases and trims an email or wallet address so it can be
// used as an identity lookup key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
