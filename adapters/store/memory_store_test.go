package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/core"
)

func testSession(key string) *core.Session {
	return &core.Session{
		IdentityKey: key,
		Signature:   "0xsig",
		Message:     core.BuildMessage(key, "nonce", 1700000000000),
		ExpiresAt:   time.Now().Add(time.Hour).UTC(),
	}
}

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()

	require.NoError(t, s.Store(ctx, core.CredentialWallet, testSession("0xabc")))

	loaded, err := s.Load(ctx, core.CredentialWallet)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "0xabc", loaded.IdentityKey)
	assert.Equal(t, "nonce", loaded.Message.Nonce)
	assert.Equal(t, int64(1700000000000), loaded.Message.TimestampMillis)
}

func TestMemorySessionStoreAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()

	loaded, err := s.Load(ctx, core.CredentialWallet)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemorySessionStoreKindsAreDistinct(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()

	require.NoError(t, s.Store(ctx, core.CredentialWallet, testSession("0xabc")))
	require.NoError(t, s.Store(ctx, core.CredentialOAuth, testSession("e@x.com")))

	wallet, err := s.Load(ctx, core.CredentialWallet)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", wallet.IdentityKey)

	oauth, err := s.Load(ctx, core.CredentialOAuth)
	require.NoError(t, err)
	assert.Equal(t, "e@x.com", oauth.IdentityKey)

	require.NoError(t, s.Clear(ctx, core.CredentialWallet))
	wallet, err = s.Load(ctx, core.CredentialWallet)
	require.NoError(t, err)
	assert.Nil(t, wallet)

	oauth, err = s.Load(ctx, core.CredentialOAuth)
	require.NoError(t, err)
	assert.NotNil(t, oauth)
}

func TestMemorySessionStoreCorruptDataTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()

	s.mu.Lock()
	s.data[core.CredentialWallet] = []byte("{not json")
	s.mu.Unlock()

	loaded, err := s.Load(ctx, core.CredentialWallet)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// The corrupt entry must have been cleared.
	s.mu.Lock()
	_, remains := s.data[core.CredentialWallet]
	s.mu.Unlock()
	assert.False(t, remains)
}

func TestMemorySessionStoreMissingFieldsTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()

	s.mu.Lock()
	s.data[core.CredentialWallet] = []byte(`{"signature":"0xsig"}`)
	s.mu.Unlock()

	loaded, err := s.Load(ctx, core.CredentialWallet)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryNonceStoreIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNonceStore()

	first, err := s.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 64) // 32 bytes hex-encoded

	second, err := s.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMemoryNonceStoreClearRotates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNonceStore()

	first, err := s.GetOrCreate(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))

	next, err := s.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, next)
}
