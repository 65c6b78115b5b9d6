package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/metrics"
	"github.com/layer-3/garuda/ports"
)

// IdentityResolver finds or creates the one canonical user a login event
// belongs to and links the new credential to it. Resolution is serialized
// per identity key so two concurrent logins for the same person cannot race
// to create two records; a conflict that still slips through (e.g. two
// instances racing on the backend's unique constraints) is retried once
// after the loser observes the winner's committed record.
type IdentityResolver struct {
	store    ports.IdentityStore
	registry ports.WalletRegistry
	events   ports.EventPublisher
	metrics  *metrics.Metrics
	logger   watermill.LoggerAdapter
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewIdentityResolver creates a resolver. registry, events and m may be nil.
func NewIdentityResolver(store ports.IdentityStore, registry ports.WalletRegistry, events ports.EventPublisher, m *metrics.Metrics, logger watermill.LoggerAdapter) *IdentityResolver {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &IdentityResolver{
		store:    store,
		registry: registry,
		events:   events,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[string]*keyLock),
	}
}

// Resolve applies the merge rules in order, first match wins. Idempotent:
// resolving the same event twice never creates a second record or a
// duplicate wallet link.
func (r *IdentityResolver) Resolve(ctx context.Context, event core.LoginEvent) (*core.CanonicalUser, error) {
	key := event.Key()
	if key == "" {
		return nil, core.ErrNoIdentityKey
	}

	unlock := r.lock(key)
	defer unlock()

	user, err := r.resolve(ctx, event)
	if errors.Is(err, core.ErrIdentityConflict) {
		user, err = r.resolve(ctx, event)
	}
	if err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.LoginsResolved.WithLabelValues(string(event.Provider)).Inc()
	}
	if r.events != nil {
		if err := r.events.PublishLogin(ctx, user.ID, key); err != nil {
			r.logger.Error("publish login event", err, nil)
		}
	}

	return user, nil
}

func (r *IdentityResolver) resolve(ctx context.Context, event core.LoginEvent) (*core.CanonicalUser, error) {
	address := core.NormalizeKey(event.Address)
	email := core.NormalizeKey(event.Email)

	// Rule 1: the wallet is already linked to a canonical user.
	if address != "" {
		user, err := r.store.FindByAddress(ctx, address)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return r.enrich(ctx, user, event)
		}
	}

	// Rule 2: another subsystem already maps the wallet to a user. Adopt
	// that user, creating the link entry if absent.
	if address != "" && r.registry != nil {
		ownerID, err := r.registry.Owner(ctx, address)
		if err != nil {
			return nil, err
		}
		if ownerID != "" {
			user, err := r.store.FindByID(ctx, ownerID)
			if err != nil {
				return nil, err
			}
			if user != nil {
				if err := r.linkWallet(ctx, user, address); err != nil {
					return nil, err
				}
				return r.enrich(ctx, user, event)
			}
		}
	}

	// Rule 3: a canonical user already carries the email.
	if email != "" {
		user, err := r.store.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user != nil {
			if address != "" {
				if err := r.linkWallet(ctx, user, address); err != nil {
					return nil, err
				}
			}
			return r.enrich(ctx, user, event)
		}
	}

	// Rules 4 and 5: nothing matched, create. When both identifiers are
	// new the email keys the record and absorbs the wallet, since email is
	// the more durable identifier.
	return r.create(ctx, event, address, email)
}

// enrich applies newly observed profile fields the user does not have yet
// and refreshes the update timestamp. OAuth-supplied emails count as
// verified (rule 6).
func (r *IdentityResolver) enrich(ctx context.Context, user *core.CanonicalUser, event core.LoginEvent) (*core.CanonicalUser, error) {
	var email, displayName string
	if e := core.NormalizeKey(event.Email); e != "" && user.Email == "" {
		email = e
	}
	if event.DisplayName != "" && user.DisplayName == "" {
		displayName = event.DisplayName
	}
	verified := event.Provider == core.CredentialOAuth && !user.EmailVerified

	if email == "" && displayName == "" && !verified {
		if err := r.store.TouchUpdatedAt(ctx, user.ID); err != nil {
			return nil, err
		}
		user.UpdatedAt = r.now()
		return user, nil
	}

	if err := r.store.SetProfile(ctx, user.ID, email, displayName, verified); err != nil {
		return nil, err
	}
	if email != "" {
		user.Email = email
	}
	if displayName != "" {
		user.DisplayName = displayName
	}
	if verified {
		user.EmailVerified = true
	}
	user.UpdatedAt = r.now()
	return user, nil
}

func (r *IdentityResolver) linkWallet(ctx context.Context, user *core.CanonicalUser, address string) error {
	if user.HasWallet(address) {
		return nil
	}
	if err := r.store.LinkWallet(ctx, user.ID, address); err != nil {
		return err
	}
	user.AddWallet(address)

	if r.metrics != nil {
		r.metrics.WalletsLinked.Inc()
	}
	if r.events != nil {
		if err := r.events.PublishWalletLinked(ctx, user.ID, address); err != nil {
			r.logger.Error("publish wallet-linked event", err, nil)
		}
	}
	return nil
}

func (r *IdentityResolver) create(ctx context.Context, event core.LoginEvent, address, email string) (*core.CanonicalUser, error) {
	primary := email
	if primary == "" {
		primary = address
	}

	now := r.now()
	user := &core.CanonicalUser{
		ID:            uuid.New().String(),
		PrimaryKey:    primary,
		Email:         email,
		DisplayName:   event.DisplayName,
		EmailVerified: email != "" && event.Provider == core.CredentialOAuth,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	user.AddWallet(address)

	if err := r.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.UsersCreated.Inc()
	}
	if r.events != nil && address != "" {
		if err := r.events.PublishWalletLinked(ctx, user.ID, address); err != nil {
			r.logger.Error("publish wallet-linked event", err, nil)
		}
	}

	return user, nil
}

// lock serializes resolution per identity key. Entries are refcounted so the
// map does not grow with every key ever seen.
func (r *IdentityResolver) lock(key string) (unlock func()) {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &keyLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}
