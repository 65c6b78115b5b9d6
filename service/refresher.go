package service

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/shopspring/decimal"

	"github.com/layer-3/garuda/ports"
)

// DefaultRefreshInterval is how often the balance is refreshed while a
// session is active.
const DefaultRefreshInterval = 30 * time.Second

// BalanceRefresher polls the balance for the active address on a fixed
// interval. It is bound to the session lifetime: Stop cancels the loop
// immediately, so it never keeps running against a cleared session.
type BalanceRefresher struct {
	source   ports.BalanceSource
	interval time.Duration
	logger   watermill.LoggerAdapter

	mu      sync.Mutex
	cancel  context.CancelFunc
	balance decimal.Decimal
}

// NewBalanceRefresher creates a refresher with the default 30s interval.
func NewBalanceRefresher(source ports.BalanceSource, logger watermill.LoggerAdapter) *BalanceRefresher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &BalanceRefresher{
		source:   source,
		interval: DefaultRefreshInterval,
		logger:   logger,
	}
}

// Start begins polling for the address, replacing any previous loop.
func (r *BalanceRefresher) Start(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	go r.run(ctx, address)
}

// Stop cancels the polling loop.
func (r *BalanceRefresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Balance returns the most recently observed balance.
func (r *BalanceRefresher) Balance() decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balance
}

func (r *BalanceRefresher) run(ctx context.Context, address string) {
	r.refresh(ctx, address)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx, address)
		}
	}
}

func (r *BalanceRefresher) refresh(ctx context.Context, address string) {
	balance, err := r.source.Balance(ctx, address)
	if err != nil {
		r.logger.Error("refresh balance", err, watermill.LogFields{"address": address})
		return
	}

	r.mu.Lock()
	r.balance = balance
	r.mu.Unlock()
}
