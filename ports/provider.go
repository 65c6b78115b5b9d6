package ports

import "context"

// WalletProvider is the narrow surface this service needs from an external
// wallet. Adapters translate each real provider's quirks (error codes,
// account event shapes) to it. Calls may suspend indefinitely awaiting human
// approval; declines surface as core.ErrUserRejected, a pending duplicate
// request as core.ErrProviderBusy, a missing provider as
// core.ErrProviderUnavailable.
type WalletProvider interface {
	// RequestAccounts returns the accounts the provider exposes. May prompt.
	RequestAccounts(ctx context.Context) ([]string, error)

	// SignMessage asks the provider to sign text with the key behind
	// address. May prompt.
	SignMessage(ctx context.Context, address, text string) (string, error)

	// Subscribe registers a callback for account list changes and returns
	// the matching unsubscribe, so the lifecycle stays explicit.
	Subscribe(onAccountsChanged func(accounts []string)) (unsubscribe func())
}
