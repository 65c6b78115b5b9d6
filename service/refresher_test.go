package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBalanceSource struct {
	calls atomic.Int64
}

func (s *countingBalanceSource) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	return decimal.NewFromInt(s.calls.Add(1)), nil
}

func TestBalanceRefresherPolls(t *testing.T) {
	source := &countingBalanceSource{}
	r := NewBalanceRefresher(source, nil)
	r.interval = 2 * time.Millisecond

	r.Start("0xabc")
	defer r.Stop()

	require.Eventually(t, func() bool {
		return r.Balance().GreaterThanOrEqual(decimal.NewFromInt(2))
	}, time.Second, time.Millisecond)
}

func TestBalanceRefresherStops(t *testing.T) {
	source := &countingBalanceSource{}
	r := NewBalanceRefresher(source, nil)
	r.interval = 2 * time.Millisecond

	r.Start("0xabc")
	require.Eventually(t, func() bool {
		return source.calls.Load() >= 1
	}, time.Second, time.Millisecond)

	r.Stop()

	// Let any in-flight refresh drain, then verify the loop is gone.
	time.Sleep(10 * time.Millisecond)
	settled := source.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, source.calls.Load())
}

func TestBalanceRefresherStartReplacesLoop(t *testing.T) {
	source := &countingBalanceSource{}
	r := NewBalanceRefresher(source, nil)
	r.interval = 2 * time.Millisecond

	r.Start("0xabc")
	r.Start("0xdef")
	defer r.Stop()

	require.Eventually(t, func() bool {
		return source.calls.Load() >= 3
	}, time.Second, time.Millisecond)
}
