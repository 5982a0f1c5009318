// Package wallet provides the identity whose activity is monitored.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

var (
	// ErrWalletUnavailable is returned when no wallet is configured.
	ErrWalletUnavailable = errors.New("wallet unavailable")
	// ErrConnectionRejected is returned when the wallet refuses or fails the connection.
	ErrConnectionRejected = errors.New("wallet connection rejected")
)

// Identity is a connected wallet.
type Identity struct {
	PublicKey string
}

// Provider connects to a wallet and reports when it goes away.
type Provider interface {
	Connect(ctx context.Context) (Identity, error)
	// Disconnects is closed when the current connection ends.
	// Before the first Connect it returns a nil channel.
	Disconnects() <-chan struct{}
	// AccountChanges delivers the new identity when the connected wallet
	// switches to another account. Only the latest pending change is kept.
	AccountChanges() <-chan Identity
	Disconnect()
}

// WatchOnly is a Provider for a configured public key. It never signs; it
// only validates that the key is a Solana ed25519 public key.
type WatchOnly struct {
	publicKey string

	mu        sync.Mutex
	connected bool
	gone      chan struct{}
	changes   chan Identity
}

// NewWatchOnly creates a provider for publicKey (base58).
func NewWatchOnly(publicKey string) *WatchOnly {
	return &WatchOnly{publicKey: publicKey, changes: make(chan Identity, 1)}
}

// Connect validates the key and marks the wallet connected.
func (w *WatchOnly) Connect(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	if w.publicKey == "" {
		return Identity{}, ErrWalletUnavailable
	}
	if err := ValidatePublicKey(w.publicKey); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrConnectionRejected, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		w.connected = true
		w.gone = make(chan struct{})
		w.drainChanges()
	}
	return Identity{PublicKey: w.publicKey}, nil
}

// SwitchAccount points the connected wallet at publicKey and announces the
// change on AccountChanges. Switching to the current key is a no-op.
func (w *WatchOnly) SwitchAccount(publicKey string) error {
	if err := ValidatePublicKey(publicKey); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionRejected, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return ErrWalletUnavailable
	}
	if publicKey == w.publicKey {
		return nil
	}
	w.publicKey = publicKey
	w.drainChanges()
	w.changes <- Identity{PublicKey: publicKey}
	return nil
}

// AccountChanges implements Provider.
func (w *WatchOnly) AccountChanges() <-chan Identity {
	return w.changes
}

// drainChanges drops a pending change. Callers hold mu.
func (w *WatchOnly) drainChanges() {
	select {
	case <-w.changes:
	default:
	}
}

// Disconnects implements Provider.
func (w *WatchOnly) Disconnects() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gone
}

// Disconnect ends the current connection. Calling it when not connected is a no-op.
func (w *WatchOnly) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return
	}
	w.connected = false
	close(w.gone)
}

// ValidatePublicKey checks that key decodes to 32 bytes and lies on the ed25519 curve.
func ValidatePublicKey(key string) error {
	raw, err := base58.Decode(key)
	if err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("public key must be 32 bytes, got %d", len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("public key is not on the ed25519 curve: %w", err)
	}
	return nil
}
