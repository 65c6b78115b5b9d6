package service

import (
	"context"
	"testing"
	"time"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/adapters/provider"
	"github.com/layer-3/garuda/adapters/store"
	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

func newTestCoordinator(t *testing.T, p ports.WalletProvider) (*ReconnectCoordinator, *store.MemorySessionStore) {
	t.Helper()
	sessions := store.NewMemorySessionStore()
	protocol := NewSessionProtocol(p, sessions, store.NewMemoryNonceStore())
	c := NewReconnectCoordinator(protocol, p, nil, nil, nil)
	c.retryDelay = time.Millisecond
	return c, sessions
}

func TestConnectIssuesFreshSession(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider(t)
	c, _ := newTestCoordinator(t, p)

	session, err := c.Connect(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, core.NormalizeKey(p.address()), session.IdentityKey)
	assert.Equal(t, session, c.Session())

	requests, signs := p.counts()
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, signs)
}

func TestConnectReusesStoredSession(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider(t)
	c, _ := newTestCoordinator(t, p)

	first, err := c.Connect(ctx)
	require.NoError(t, err)

	// The second connect finds the stored valid session and never reaches
	// for the signer again.
	second, err := c.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.IdentityKey, second.IdentityKey)
	assert.Equal(t, first.Signature, second.Signature)

	_, signs := p.counts()
	assert.Equal(t, 1, signs)
}

func TestConnectRetriesOnBusy(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider(t)
	p.busyLeft = 2
	c, _ := newTestCoordinator(t, p)

	session, err := c.Connect(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)

	requests, _ := p.counts()
	assert.Equal(t, 3, requests)
}

func TestConnectBusyExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider(t)
	p.busyLeft = 3
	c, _ := newTestCoordinator(t, p)

	_, err := c.Connect(ctx)
	assert.ErrorIs(t, err, core.ErrProviderBusy)

	// One initial attempt plus the bounded retries, no more.
	requests, _ := p.counts()
	assert.Equal(t, 3, requests)
	assert.Nil(t, c.Session())
}

func TestConnectUserRejectedIsTerminal(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider(t)
	p.rejectSign = true
	c, _ := newTestCoordinator(t, p)

	_, err := c.Connect(ctx)
	assert.ErrorIs(t, err, core.ErrUserRejected)

	// A decline is never retried.
	requests, signs := p.counts()
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, signs)
}

func TestConnectRejectsConcurrentAttempt(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider(t)
	p.blockCh = make(chan struct{})
	c, _ := newTestCoordinator(t, p)

	done := make(chan error, 1)
	go func() {
		_, err := c.Connect(ctx)
		done <- err
	}()

	// Wait for the first connect to be inside the provider call.
	require.Eventually(t, func() bool {
		requests, _ := p.counts()
		return requests == 1
	}, time.Second, time.Millisecond)

	_, err := c.Connect(ctx)
	assert.ErrorIs(t, err, core.ErrAlreadyConnecting)

	close(p.blockCh)
	require.NoError(t, <-done)
}

func TestDisconnectTearsDown(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider(t)
	c, sessions := newTestCoordinator(t, p)

	_, err := c.Connect(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Disconnect(ctx))
	assert.Nil(t, c.Session())

	stored, err := sessions.Load(ctx, core.CredentialWallet)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestAccountSwitchDisconnects(t *testing.T) {
	ctx := context.Background()

	key1, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	key2, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	keyring := provider.NewKeyringProvider(key1)
	c, sessions := newTestCoordinator(t, keyring)

	_, err = c.Connect(ctx)
	require.NoError(t, err)
	require.NotNil(t, c.Session())

	// The active account disappearing from the provider kills the session.
	keyring.SwitchAccounts(key2)
	assert.Nil(t, c.Session())

	stored, err := sessions.Load(ctx, core.CredentialWallet)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestAccountSwitchToSameAccountKeepsSession(t *testing.T) {
	ctx := context.Background()

	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	keyring := provider.NewKeyringProvider(key)
	c, _ := newTestCoordinator(t, keyring)

	_, err = c.Connect(ctx)
	require.NoError(t, err)

	keyring.SwitchAccounts(key)
	assert.NotNil(t, c.Session())
}
