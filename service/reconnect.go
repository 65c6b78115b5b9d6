package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/cenkalti/backoff/v4"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/metrics"
	"github.com/layer-3/garuda/ports"
)

const (
	// DefaultConnectRetryDelay is the fixed backoff between connect
	// attempts when the provider reports a pending duplicate request.
	DefaultConnectRetryDelay = 2 * time.Second

	// DefaultConnectMaxRetries bounds the busy-retry loop.
	DefaultConnectMaxRetries = 2
)

// ReconnectCoordinator wraps the connect path: it adopts a stored valid
// session without a signing ceremony when it can, and otherwise runs the
// account-request/issue flow with bounded retry on provider-busy errors.
// One connect attempt may be in flight at a time; a concurrent second call
// is rejected with core.ErrAlreadyConnecting rather than queued.
type ReconnectCoordinator struct {
	protocol  *SessionProtocol
	provider  ports.WalletProvider
	refresher *BalanceRefresher
	metrics   *metrics.Metrics
	logger    watermill.LoggerAdapter

	retryDelay time.Duration
	maxRetries uint64

	connecting  atomic.Bool
	mu          sync.Mutex
	unsubscribe func()
	current     *core.Session
}

// NewReconnectCoordinator creates a coordinator. refresher and m may be nil.
func NewReconnectCoordinator(protocol *SessionProtocol, provider ports.WalletProvider, refresher *BalanceRefresher, m *metrics.Metrics, logger watermill.LoggerAdapter) *ReconnectCoordinator {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &ReconnectCoordinator{
		protocol:   protocol,
		provider:   provider,
		refresher:  refresher,
		metrics:    m,
		logger:     logger,
		retryDelay: DefaultConnectRetryDelay,
		maxRetries: DefaultConnectMaxRetries,
	}
}

// Connect establishes a wallet session. Stored sessions are adopted when
// they validate and match an exposed account; otherwise the first exposed
// account goes through a signing ceremony. Provider-busy errors retry the
// whole attempt after a fixed delay, up to the retry bound; a user decline
// is terminal.
func (c *ReconnectCoordinator) Connect(ctx context.Context) (*core.Session, error) {
	if !c.connecting.CompareAndSwap(false, true) {
		return nil, core.ErrAlreadyConnecting
	}
	defer c.connecting.Store(false)

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), c.maxRetries),
		ctx,
	)

	session, err := backoff.RetryWithData(func() (*core.Session, error) {
		session, reused, err := c.attempt(ctx)
		if err != nil {
			if errors.Is(err, core.ErrProviderBusy) {
				c.logger.Info("provider busy, backing off", nil)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		if c.metrics != nil {
			if reused {
				c.metrics.SessionsReused.Inc()
			} else {
				c.metrics.SessionsIssued.Inc()
			}
		}
		return session, nil
	}, policy)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ConnectFailures.WithLabelValues(failureReason(err)).Inc()
		}
		return nil, err
	}

	c.adopt(session)
	return session, nil
}

// attempt runs one full connect pass: request accounts, try silent reuse,
// fall back to a signing ceremony.
func (c *ReconnectCoordinator) attempt(ctx context.Context) (*core.Session, bool, error) {
	accounts, err := c.provider.RequestAccounts(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(accounts) == 0 {
		return nil, false, core.ErrProviderUnavailable
	}

	for _, address := range accounts {
		stored, err := c.protocol.RevalidateAndMaybeReuse(ctx, address)
		if err != nil {
			return nil, false, err
		}
		if stored != nil {
			return stored, true, nil
		}
	}

	session, err := c.protocol.Issue(ctx, accounts[0])
	if err != nil {
		return nil, false, err
	}
	return session, false, nil
}

// adopt records the active session, starts the balance refresher and
// subscribes to account changes so an account switch tears the session down.
func (c *ReconnectCoordinator) adopt(session *core.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = session
	if c.refresher != nil {
		c.refresher.Start(session.IdentityKey)
	}
	if c.unsubscribe == nil {
		c.unsubscribe = c.provider.Subscribe(c.onAccountsChanged)
	}
}

// onAccountsChanged tears the session down when the active identity key is
// no longer among the provider's accounts.
func (c *ReconnectCoordinator) onAccountsChanged(accounts []string) {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current == nil {
		return
	}

	for _, address := range accounts {
		if core.NormalizeKey(address) == current.IdentityKey {
			return
		}
	}

	c.logger.Info("active account no longer exposed, disconnecting", watermill.LogFields{
		"identity_key": current.IdentityKey,
	})
	if err := c.Disconnect(context.Background()); err != nil {
		c.logger.Error("teardown after account switch", err, nil)
	}
}

// Disconnect stops the refresher, drops the subscription and tears the
// session down. Safe to call without an active session.
func (c *ReconnectCoordinator) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.current = nil
	if c.refresher != nil {
		c.refresher.Stop()
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.mu.Unlock()

	if err := c.protocol.Teardown(ctx); err != nil {
		return fmt.Errorf("teardown: %w", err)
	}
	return nil
}

// Session returns the currently adopted session, or nil.
func (c *ReconnectCoordinator) Session() *core.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, core.ErrUserRejected):
		return "user_rejected"
	case errors.Is(err, core.ErrProviderBusy):
		return "provider_busy"
	case errors.Is(err, core.ErrProviderUnavailable):
		return "provider_unavailable"
	default:
		return "other"
	}
}
