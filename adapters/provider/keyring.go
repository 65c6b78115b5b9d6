// Package provider holds adapters that translate real credential sources
// (wallet signers, OAuth issuers, password stores) to the service's ports.
package provider

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"sync"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/internal/eth"
	"github.com/layer-3/garuda/ports"
)

// KeyringProvider is a WalletProvider backed by locally held private keys.
// It signs without prompting, which makes it the development and test signer;
// production deployments adapt a remote or injected provider instead.
type KeyringProvider struct {
	keys     map[string]*ecdsa.PrivateKey
	accounts []string
	subs     map[int]func([]string)
	nextSub  int
	mu       sync.Mutex
}

// NewKeyringProvider creates a provider exposing the given keys.
func NewKeyringProvider(keys ...*ecdsa.PrivateKey) *KeyringProvider {
	p := &KeyringProvider{
		keys: make(map[string]*ecdsa.PrivateKey),
		subs: make(map[int]func([]string)),
	}
	for _, key := range keys {
		addr := eth.AddressOf(key)
		p.keys[core.NormalizeKey(addr)] = key
		p.accounts = append(p.accounts, addr)
	}
	return p
}

// RequestAccounts returns the held accounts.
func (p *KeyringProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.accounts) == 0 {
		return nil, core.ErrProviderUnavailable
	}
	return append([]string(nil), p.accounts...), nil
}

// SignMessage signs text with the key behind address.
func (p *KeyringProvider) SignMessage(ctx context.Context, address, text string) (string, error) {
	p.mu.Lock()
	key, ok := p.keys[core.NormalizeKey(address)]
	p.mu.Unlock()

	if !ok {
		return "", core.ErrUserRejected
	}
	return eth.Sign(text, key)
}

// Subscribe registers a callback for account list changes.
func (p *KeyringProvider) Subscribe(onAccountsChanged func(accounts []string)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = onAccountsChanged
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// SwitchAccounts replaces the exposed account list and notifies subscribers,
// mirroring a wallet's accountsChanged event.
func (p *KeyringProvider) SwitchAccounts(keys ...*ecdsa.PrivateKey) {
	p.mu.Lock()
	p.keys = make(map[string]*ecdsa.PrivateKey)
	p.accounts = nil
	for _, key := range keys {
		addr := eth.AddressOf(key)
		p.keys[strings.ToLower(addr)] = key
		p.accounts = append(p.accounts, addr)
	}
	accounts := append([]string(nil), p.accounts...)
	subs := make([]func([]string), 0, len(p.subs))
	for _, sub := range p.subs {
		subs = append(subs, sub)
	}
	p.mu.Unlock()

	for _, sub := range subs {
		sub(accounts)
	}
}

var _ ports.WalletProvider = (*KeyringProvider)(nil)
