// Package balance adapts on-chain balance queries to the BalanceSource port.
package balance

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/layer-3/garuda/ports"
)

// EthBalanceSource reports native-token balances from an Ethereum RPC node.
type EthBalanceSource struct {
	client *ethclient.Client
}

// NewEthBalanceSource dials the RPC endpoint.
func NewEthBalanceSource(rpcURL string) (*EthBalanceSource, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial eth rpc: %w", err)
	}
	return &EthBalanceSource{client: client}, nil
}

// Balance returns the latest balance for the address, denominated in ether.
func (s *EthBalanceSource) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	wei, err := s.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch balance: %w", err)
	}
	return decimal.NewFromBigInt(wei, -18), nil
}

var _ ports.BalanceSource = (*EthBalanceSource)(nil)
