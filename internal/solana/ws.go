package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// AccountSubscribe subscribes to lamport/data changes of an account.
	AccountSubscribe(ctx context.Context, account string) (Subscription, error)

	// Close closes the WebSocket connection.
	Close() error
}

// Subscription is a live accountSubscribe stream.
type Subscription interface {
	// Notifications is closed when the subscription ends or the client closes.
	Notifications() <-chan AccountNotification

	// Unsubscribe stops the stream. Safe to call more than once.
	Unsubscribe(ctx context.Context) error
}

// AccountNotification represents an accountNotification message.
type AccountNotification struct {
	Account  string
	Slot     int64
	Lamports uint64
	Owner    string
}
