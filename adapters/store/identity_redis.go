package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// RedisIdentityStore is a Redis implementation of the IdentityStore
// interface. Users serialize as JSON under garuda:user:<id>; uniqueness is
// enforced with SetNX index keys (garuda:user:email:<email>,
// garuda:user:wallet:<address>), so a racing duplicate surfaces as
// core.ErrIdentityConflict for the caller to retry.
type RedisIdentityStore struct {
	client *redis.Client
	prefix string
}

// NewRedisIdentityStore creates a new Redis identity store.
func NewRedisIdentityStore(client *redis.Client) *RedisIdentityStore {
	return &RedisIdentityStore{
		client: client,
		prefix: "garuda:user:",
	}
}

func (s *RedisIdentityStore) userKey(id string) string  { return s.prefix + id }
func (s *RedisIdentityStore) emailKey(e string) string  { return s.prefix + "email:" + e }
func (s *RedisIdentityStore) walletKey(a string) string { return s.prefix + "wallet:" + a }

// FindByID returns the user with the given ID, or (nil, nil).
func (s *RedisIdentityStore) FindByID(ctx context.Context, id string) (*core.CanonicalUser, error) {
	raw, err := s.client.Get(ctx, s.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	var user core.CanonicalUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// FindByAddress returns the user owning the wallet, or (nil, nil).
func (s *RedisIdentityStore) FindByAddress(ctx context.Context, address string) (*core.CanonicalUser, error) {
	return s.findByIndex(ctx, s.walletKey(core.NormalizeKey(address)))
}

// FindByEmail returns the user carrying the email, or (nil, nil).
func (s *RedisIdentityStore) FindByEmail(ctx context.Context, email string) (*core.CanonicalUser, error) {
	return s.findByIndex(ctx, s.emailKey(core.NormalizeKey(email)))
}

func (s *RedisIdentityStore) findByIndex(ctx context.Context, indexKey string) (*core.CanonicalUser, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	return s.FindByID(ctx, id)
}

// CreateUser inserts a new canonical user, claiming the email and wallet
// index entries first so a racing create loses with a conflict.
func (s *RedisIdentityStore) CreateUser(ctx context.Context, user *core.CanonicalUser) error {
	exists, err := s.client.Exists(ctx, s.userKey(user.ID)).Result()
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if exists > 0 {
		return nil // retry of a committed create
	}

	email := core.NormalizeKey(user.Email)
	if email == "" && looksLikeEmail(user.PrimaryKey) {
		email = core.NormalizeKey(user.PrimaryKey)
	}

	var claimed []string
	release := func() {
		for _, key := range claimed {
			s.client.Del(ctx, key)
		}
	}

	if email != "" {
		ok, err := s.client.SetNX(ctx, s.emailKey(email), user.ID, 0).Result()
		if err != nil {
			return fmt.Errorf("claim email: %w", err)
		}
		if !ok {
			return core.ErrIdentityConflict
		}
		claimed = append(claimed, s.emailKey(email))
	}
	for _, w := range user.LinkedWallets {
		ok, err := s.client.SetNX(ctx, s.walletKey(w), user.ID, 0).Result()
		if err != nil {
			release()
			return fmt.Errorf("claim wallet: %w", err)
		}
		if !ok {
			release()
			return core.ErrIdentityConflict
		}
		claimed = append(claimed, s.walletKey(w))
	}

	if err := s.writeUser(ctx, user); err != nil {
		release()
		return err
	}
	return nil
}

// LinkWallet attaches the address to the user, a no-op when already linked
// to the same user.
func (s *RedisIdentityStore) LinkWallet(ctx context.Context, userID, address string) error {
	address = core.NormalizeKey(address)

	ok, err := s.client.SetNX(ctx, s.walletKey(address), userID, 0).Result()
	if err != nil {
		return fmt.Errorf("claim wallet: %w", err)
	}
	if !ok {
		owner, err := s.client.Get(ctx, s.walletKey(address)).Result()
		if err != nil {
			return fmt.Errorf("read wallet owner: %w", err)
		}
		if owner != userID {
			return core.ErrIdentityConflict
		}
	}

	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return core.ErrIdentityConflict
	}
	if user.AddWallet(address) {
		user.UpdatedAt = time.Now()
		return s.writeUser(ctx, user)
	}
	return nil
}

// SetProfile updates email, display name and verification state.
func (s *RedisIdentityStore) SetProfile(ctx context.Context, userID, email, displayName string, emailVerified bool) error {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return core.ErrIdentityConflict
	}

	if email = core.NormalizeKey(email); email != "" && email != user.Email {
		ok, err := s.client.SetNX(ctx, s.emailKey(email), userID, 0).Result()
		if err != nil {
			return fmt.Errorf("claim email: %w", err)
		}
		if !ok {
			owner, err := s.client.Get(ctx, s.emailKey(email)).Result()
			if err != nil {
				return fmt.Errorf("read email owner: %w", err)
			}
			if owner != userID {
				return core.ErrIdentityConflict
			}
		}
		if user.Email != "" {
			s.client.Del(ctx, s.emailKey(user.Email))
		}
		user.Email = email
	}
	if displayName != "" {
		user.DisplayName = displayName
	}
	if emailVerified {
		user.EmailVerified = true
	}
	user.UpdatedAt = time.Now()
	return s.writeUser(ctx, user)
}

// TouchUpdatedAt refreshes the user's update timestamp.
func (s *RedisIdentityStore) TouchUpdatedAt(ctx context.Context, userID string) error {
	user, err := s.FindByID(ctx, userID)
	if err != nil || user == nil {
		return err
	}
	user.UpdatedAt = time.Now()
	return s.writeUser(ctx, user)
}

func (s *RedisIdentityStore) writeUser(ctx context.Context, user *core.CanonicalUser) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.client.Set(ctx, s.userKey(user.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("write user: %w", err)
	}
	return nil
}

var _ ports.IdentityStore = (*RedisIdentityStore)(nil)
