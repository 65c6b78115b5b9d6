package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// BalanceSource reports the current balance for an address. Consumed by the
// periodic refresher while a session is active.
type BalanceSource interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}
