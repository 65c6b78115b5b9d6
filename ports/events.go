package ports

import "context"

// EventPublisher notifies other services about authentication lifecycle
// changes.
type EventPublisher interface {
	PublishLogin(ctx context.Context, userID, identityKey string) error
	PublishLogout(ctx context.Context, identityKey string) error
	PublishWalletLinked(ctx context.Context, userID, address string) error
}
