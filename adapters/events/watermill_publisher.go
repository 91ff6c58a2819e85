package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/wrenlabs/popsign/ports"
)

// Lifecycle topics published for interested external systems.
const (
	TopicConnected       = "popsign.connected"
	TopicDisconnected    = "popsign.disconnected"
	TopicAccountsChanged = "popsign.accounts"
)

// ConnectedEvent records a completed sign-in.
type ConnectedEvent struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chain_id"`
}

// DisconnectedEvent records an explicit sign-out.
type DisconnectedEvent struct {
	Address string `json:"address"`
}

// AccountsChangedEvent records the current account list after a change.
type AccountsChangedEvent struct {
	Accounts []string `json:"accounts"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishConnected publishes a connected event
func (p *WatermillPublisher) PublishConnected(ctx context.Context, address string, chainID uint64) error {
	return p.publish(TopicConnected, ConnectedEvent{Address: address, ChainID: chainID})
}

// PublishDisconnected publishes a disconnected event
func (p *WatermillPublisher) PublishDisconnected(ctx context.Context, address string) error {
	return p.publish(TopicDisconnected, DisconnectedEvent{Address: address})
}

// PublishAccountsChanged publishes an accounts-changed event
func (p *WatermillPublisher) PublishAccountsChanged(ctx context.Context, accounts []string) error {
	return p.publish(TopicAccountsChanged, AccountsChangedEvent{Accounts: accounts})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
