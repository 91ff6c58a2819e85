package ports

import "context"

// EventPublisher publishes lifecycle events to interested external systems,
// in addition to the in-process listener registry.
type EventPublisher interface {
	PublishConnected(ctx context.Context, address string, chainID uint64) error
	PublishDisconnected(ctx context.Context, address string) error
	PublishAccountsChanged(ctx context.Context, accounts []string) error
}
