package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/garuda/ports"
)

const (
	LoginTopic        = "garuda.login"
	LogoutTopic       = "garuda.logout"
	WalletLinkedTopic = "garuda.wallet_linked"
)

// LoginEvent notifies other services that an identity authenticated.
type LoginEvent struct {
	UserID      string `json:"user_id"`
	IdentityKey string `json:"identity_key"`
}

// LogoutEvent notifies other services that an identity's session was torn
// down.
type LogoutEvent struct {
	IdentityKey string `json:"identity_key"`
}

// WalletLinkedEvent notifies other services that a wallet converged onto a
// canonical user.
type WalletLinkedEvent struct {
	UserID  string `json:"user_id"`
	Address string `json:"address"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, userID, identityKey string) error {
	return p.publish(LoginTopic, LoginEvent{UserID: userID, IdentityKey: identityKey})
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, identityKey string) error {
	return p.publish(LogoutTopic, LogoutEvent{IdentityKey: identityKey})
}

// PublishWalletLinked publishes a wallet-linked event.
func (p *WatermillPublisher) PublishWalletLinked(ctx context.Context, userID, address string) error {
	return p.publish(WalletLinkedTopic, WalletLinkedEvent{UserID: userID, Address: address})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
