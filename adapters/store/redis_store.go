package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// RedisSessionStore is a Redis implementation of the SessionStore interface.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a new Redis session store.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: "garuda:session:",
	}
}

func (s *RedisSessionStore) key(kind core.CredentialKind) string {
	return s.prefix + string(kind)
}

// Store persists the session with a TTL matching its expiry, so Redis
// evicts it when validation would reject it anyway.
func (s *RedisSessionStore) Store(ctx context.Context, kind core.CredentialKind, session *core.Session) error {
	raw, err := encodeSession(session)
	if err != nil {
		return err
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return core.ErrExpiredSession
	}

	if err := s.client.Set(ctx, s.key(kind), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Load returns the stored session, or (nil, nil) when absent or malformed.
// Corrupt entries are deleted.
func (s *RedisSessionStore) Load(ctx context.Context, kind core.CredentialKind) (*core.Session, error) {
	raw, err := s.client.Get(ctx, s.key(kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	session, err := decodeSession(raw)
	if err != nil {
		s.client.Del(ctx, s.key(kind))
		return nil, nil
	}

	return session, nil
}

// Clear removes the session for the given credential kind.
func (s *RedisSessionStore) Clear(ctx context.Context, kind core.CredentialKind) error {
	if err := s.client.Del(ctx, s.key(kind)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

var _ ports.SessionStore = (*RedisSessionStore)(nil)
