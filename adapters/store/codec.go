package store

import (
	"encoding/json"
	"fmt"

	"github.com/layer-3/garuda/core"
)

// encodeSession serializes a session to its stored JSON form:
// {identityKey, signature, authMessage:{text,timestampMillis,nonce}, expiresAt}.
func encodeSession(session *core.Session) ([]byte, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return raw, nil
}

// decodeSession parses a stored session. Any missing required field or shape
// mismatch is an error; callers treat that as "no session" and clear the
// corrupt entry.
func decodeSession(raw []byte) (*core.Session, error) {
	var session core.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if session.IdentityKey == "" || session.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("decode session: missing required fields")
	}
	return &session, nil
}
