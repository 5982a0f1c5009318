package stub

import (
	"context"
	"sync"

	"sandwich-guard/internal/solana"
)

// WSClient implements solana.WSClient for testing.
type WSClient struct {
	mu   sync.Mutex
	subs map[string][]*Subscription

	// SubscribeErr, when set, is returned by AccountSubscribe.
	SubscribeErr error

	subscribeCalls int
}

// NewWSClient creates a new stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{subs: make(map[string][]*Subscription)}
}

// AccountSubscribe registers a subscription for account.
func (c *WSClient) AccountSubscribe(ctx context.Context, account string) (solana.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscribeCalls++
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}
	sub := &Subscription{ch: make(chan solana.AccountNotification, 16)}
	c.subs[account] = append(c.subs[account], sub)
	return sub, nil
}

// Notify delivers a notification to every live subscription of account.
func (c *WSClient) Notify(account string, n solana.AccountNotification) {
	c.mu.Lock()
	subs := append([]*Subscription(nil), c.subs[account]...)
	c.mu.Unlock()

	n.Account = account
	for _, s := range subs {
		s.send(n)
	}
}

// Drop ends every subscription of account, as a server-side close would.
func (c *WSClient) Drop(account string) {
	c.mu.Lock()
	subs := c.subs[account]
	delete(c.subs, account)
	c.mu.Unlock()

	for _, s := range subs {
		s.end()
	}
}

// SetSubscribeErr sets the error returned by AccountSubscribe.
func (c *WSClient) SetSubscribeErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SubscribeErr = err
}

// SubscribeCalls returns how many times AccountSubscribe was called.
func (c *WSClient) SubscribeCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribeCalls
}

// Active returns the number of live subscriptions for account.
func (c *WSClient) Active(account string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.subs[account] {
		if !s.isEnded() {
			n++
		}
	}
	return n
}

// Close ends all subscriptions.
func (c *WSClient) Close() error {
	c.mu.Lock()
	all := c.subs
	c.subs = make(map[string][]*Subscription)
	c.mu.Unlock()

	for _, subs := range all {
		for _, s := range subs {
			s.end()
		}
	}
	return nil
}

// Subscription is the stub solana.Subscription.
type Subscription struct {
	mu    sync.Mutex
	ch    chan solana.AccountNotification
	ended bool
}

// Notifications returns the notification channel.
func (s *Subscription) Notifications() <-chan solana.AccountNotification {
	return s.ch
}

// Unsubscribe ends the subscription.
func (s *Subscription) Unsubscribe(context.Context) error {
	s.end()
	return nil
}

func (s *Subscription) send(n solana.AccountNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	select {
	case s.ch <- n:
	default:
	}
}

func (s *Subscription) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.ended = true
		close(s.ch)
	}
}

func (s *Subscription) isEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}
