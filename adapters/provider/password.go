package provider

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/layer-3/garuda/core"
)

// PasswordStore looks up the stored bcrypt hash for an email. Returns
// ("", nil) when the email is unknown.
type PasswordStore interface {
	PasswordHash(ctx context.Context, email string) (string, error)
}

// StaticPasswordStore serves bcrypt hashes from a fixed map keyed by email.
type StaticPasswordStore map[string]string

// PasswordHash returns the stored hash, or "" for unknown emails.
func (s StaticPasswordStore) PasswordHash(ctx context.Context, email string) (string, error) {
	return s[core.NormalizeKey(email)], nil
}

// PasswordConnector verifies email/password credentials.
type PasswordConnector struct {
	store PasswordStore
}

// NewPasswordConnector creates a connector over the given credential store.
func NewPasswordConnector(store PasswordStore) *PasswordConnector {
	return &PasswordConnector{store: store}
}

// Login verifies the pair and returns the login event to resolve. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (c *PasswordConnector) Login(ctx context.Context, email, password string) (core.LoginEvent, error) {
	email = core.NormalizeKey(email)

	hash, err := c.store.PasswordHash(ctx, email)
	if err != nil {
		return core.LoginEvent{}, fmt.Errorf("load credential: %w", err)
	}
	if hash == "" {
		return core.LoginEvent{}, core.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return core.LoginEvent{}, core.ErrInvalidCredentials
	}

	return core.LoginEvent{
		Email:    email,
		Provider: core.CredentialPassword,
	}, nil
}
