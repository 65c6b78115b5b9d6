package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/core"
)

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func TestTokenRoundTrip(t *testing.T) {
	tok := NewJWTTokenizer(testKey(t))

	session := &core.Session{
		IdentityKey: "0xabc",
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	token, err := tok.SessionToToken(session, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identityKey, userID, err := tok.TokenToSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", identityKey)
	assert.Equal(t, "user-1", userID)
}

func TestTokenTamperRejected(t *testing.T) {
	tok := NewJWTTokenizer(testKey(t))

	session := &core.Session{IdentityKey: "0xabc", ExpiresAt: time.Now().Add(time.Hour)}
	token, err := tok.SessionToToken(session, "user-1")
	require.NoError(t, err)

	_, _, err = tok.TokenToSubject(token + "x")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestTokenFromOtherKeyRejected(t *testing.T) {
	signer := NewJWTTokenizer(testKey(t))
	verifier := NewJWTTokenizer(testKey(t))

	session := &core.Session{IdentityKey: "0xabc", ExpiresAt: time.Now().Add(time.Hour)}
	token, err := signer.SessionToToken(session, "user-1")
	require.NoError(t, err)

	_, _, err = verifier.TokenToSubject(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestTokenExpiresWithSession(t *testing.T) {
	tok := NewJWTTokenizer(testKey(t))

	session := &core.Session{IdentityKey: "0xabc", ExpiresAt: time.Now().Add(-time.Minute)}
	token, err := tok.SessionToToken(session, "user-1")
	require.NoError(t, err)

	_, _, err = tok.TokenToSubject(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
