package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/layer-3/garuda/core"
)

func TestPasswordConnectorLogin(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	connector := NewPasswordConnector(StaticPasswordStore{
		"alice@example.com": string(hash),
	})

	event, err := connector.Login(ctx, "Alice@Example.COM", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", event.Email)
	assert.Equal(t, core.CredentialPassword, event.Provider)
	assert.Equal(t, "alice@example.com", event.Key())
}

func TestPasswordConnectorRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	connector := NewPasswordConnector(StaticPasswordStore{
		"alice@example.com": string(hash),
	})

	// Unknown email and wrong password come back identical.
	_, err = connector.Login(ctx, "bob@example.com", "s3cret")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, err = connector.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}
