// Package config loads the service configuration from environment variables.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration. The protocol constants (session
// lifetime, refresh interval, retry bounds) are fixed by the protocol and
// intentionally not configurable.
type Config struct {
	Addr      string `env:"GARUDA_ADDR" envDefault:":9000"`
	RedisURL  string `env:"GARUDA_REDIS_URL"`
	EthRPCURL string `env:"GARUDA_ETH_RPC_URL"`

	// UsersJSON seeds password-login credentials as a JSON object of
	// email to bcrypt hash. Empty disables password login.
	UsersJSON string `env:"GARUDA_USERS"`

	OAuthClientID     string `env:"GARUDA_OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"GARUDA_OAUTH_CLIENT_SECRET"`
	OAuthAuthURL      string `env:"GARUDA_OAUTH_AUTH_URL"`
	OAuthTokenURL     string `env:"GARUDA_OAUTH_TOKEN_URL"`
	OAuthUserInfoURL  string `env:"GARUDA_OAUTH_USERINFO_URL"`
	OAuthRedirectURL  string `env:"GARUDA_OAUTH_REDIRECT_URL"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Users decodes the seeded password credentials.
func (c Config) Users() (map[string]string, error) {
	if c.UsersJSON == "" {
		return nil, nil
	}
	users := make(map[string]string)
	if err := json.Unmarshal([]byte(c.UsersJSON), &users); err != nil {
		return nil, fmt.Errorf("parse users: %w", err)
	}
	return users, nil
}

// OAuthEnabled reports whether an OAuth issuer is configured.
func (c Config) OAuthEnabled() bool {
	return c.OAuthClientID != "" && c.OAuthAuthURL != "" && c.OAuthTokenURL != "" && c.OAuthUserInfoURL != ""
}
