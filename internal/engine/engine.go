// Package engine is the control surface of the detector: wallet connection,
// session start/stop and live settings updates.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sandwich-guard/internal/alert"
	"sandwich-guard/internal/config"
	"sandwich-guard/internal/domain"
	"sandwich-guard/internal/monitor"
	"sandwich-guard/internal/wallet"
)

const (
	// InfoWalletDisconnected is sent after a wallet disconnect forced a stop.
	InfoWalletDisconnected = "Wallet disconnected. Monitoring stopped."
	// InfoWalletAccountChanged is sent once monitoring moved to a switched account.
	InfoWalletAccountChanged = "Wallet account changed. Monitoring restarted."
)

// Options contains configuration for creating an Engine.
type Options struct {
	Wallet  wallet.Provider
	Monitor *monitor.Monitor
	Config  *config.Store
	Sink    alert.Sink
	Logger  logrus.FieldLogger
}

// Engine ties a wallet provider to a monitor.
type Engine struct {
	provider wallet.Provider
	monitor  *monitor.Monitor
	store    *config.Store
	sink     alert.Sink
	log      logrus.FieldLogger

	mu          sync.Mutex
	identity    *wallet.Identity
	runCtx      context.Context // parent of the running session
	stopWatcher context.CancelFunc
}

// New creates an engine.
func New(opts Options) (*Engine, error) {
	if opts.Wallet == nil {
		return nil, fmt.Errorf("engine: wallet provider is required")
	}
	if opts.Monitor == nil {
		return nil, fmt.Errorf("engine: monitor is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("engine: config store is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("engine: sink is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		provider: opts.Wallet,
		monitor:  opts.Monitor,
		store:    opts.Config,
		sink:     opts.Sink,
		log:      logger.WithField("component", "engine"),
	}, nil
}

// ConnectWallet connects the wallet provider. It returns
// wallet.ErrWalletUnavailable or wallet.ErrConnectionRejected on failure.
func (e *Engine) ConnectWallet(ctx context.Context) (wallet.Identity, error) {
	id, err := e.provider.Connect(ctx)
	if err != nil {
		e.log.WithError(err).Warn("wallet connection failed")
		return wallet.Identity{}, err
	}

	e.mu.Lock()
	e.identity = &id
	e.mu.Unlock()

	e.log.WithField("wallet", id.PublicKey).Info("wallet connected")
	return id, nil
}

// Identity returns the connected wallet, if any.
func (e *Engine) Identity() (wallet.Identity, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.identity == nil {
		return wallet.Identity{}, false
	}
	return *e.identity, true
}

// Start begins monitoring id, which must be the connected wallet; otherwise
// it returns wallet.ErrWalletUnavailable. A disconnect of the wallet stops the
// session and an account switch restarts it on the new account.
func (e *Engine) Start(ctx context.Context, id wallet.Identity) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.identity == nil || e.identity.PublicKey != id.PublicKey {
		return wallet.ErrWalletUnavailable
	}
	return e.startLocked(ctx, id)
}

func (e *Engine) startLocked(ctx context.Context, id wallet.Identity) error {
	if err := e.monitor.Start(ctx, id.PublicKey); err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	e.runCtx = ctx
	e.stopWatcher = cancel
	go e.watchWallet(watchCtx, e.provider.Disconnects(), e.provider.AccountChanges(), e.monitor.SessionID())
	return nil
}

// Stop ends the running session.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.stopWatcher != nil {
		e.stopWatcher()
		e.stopWatcher = nil
	}
	e.mu.Unlock()

	return e.monitor.Stop()
}

// State returns the monitor state.
func (e *Engine) State() monitor.State {
	return e.monitor.State()
}

// UpdateConfig validates cfg and makes it the live detection config. On a
// validation error the previous config stays in effect.
func (e *Engine) UpdateConfig(cfg config.DetectionConfig) error {
	if err := e.store.Update(cfg); err != nil {
		e.log.WithError(err).Warn("config update rejected")
		return err
	}
	e.log.WithField("version", e.store.Version()).Info("config updated")
	return nil
}

// Config returns the live detection config.
func (e *Engine) Config() config.DetectionConfig {
	return e.store.Load()
}

// Close stops monitoring and disconnects the wallet.
func (e *Engine) Close() {
	_ = e.Stop()
	e.provider.Disconnect()

	e.mu.Lock()
	e.identity = nil
	e.mu.Unlock()
}

// watchWallet stops the session when gone closes and moves it to the new
// account when the wallet switches.
func (e *Engine) watchWallet(ctx context.Context, gone <-chan struct{}, changes <-chan wallet.Identity, sessionID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			e.onDisconnect(ctx, sessionID)
			return
		case id := <-changes:
			if e.onAccountChange(ctx, id) {
				return
			}
		}
	}
}

func (e *Engine) onDisconnect(ctx context.Context, sessionID string) {
	e.mu.Lock()
	if ctx.Err() != nil {
		e.mu.Unlock()
		return
	}
	e.stopWatcher = nil
	e.identity = nil
	e.mu.Unlock()

	if err := e.monitor.Stop(); err != nil {
		e.log.WithError(err).Debug("stop after wallet disconnect")
		return
	}
	v := domain.NewInfo(InfoWalletDisconnected, time.Now().UnixMilli())
	v.SessionID = sessionID
	e.sink.Notify(v)
	e.log.Warn("wallet disconnected, monitoring stopped")
}

// onAccountChange reports whether the watcher is done. A change to the key
// already monitored is ignored.
func (e *Engine) onAccountChange(ctx context.Context, id wallet.Identity) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.Err() != nil {
		return true
	}
	if e.identity != nil && e.identity.PublicKey == id.PublicKey {
		return false
	}
	e.stopWatcher()
	e.stopWatcher = nil
	e.identity = &id

	log := e.log.WithField("wallet", id.PublicKey)
	if err := e.monitor.Stop(); err != nil {
		log.WithError(err).Debug("stop after wallet account change")
		return true
	}
	parent := e.runCtx
	if parent == nil || parent.Err() != nil {
		log.Warn("wallet account changed after shutdown, not restarting")
		return true
	}
	if err := e.startLocked(parent, id); err != nil {
		log.WithError(err).Error("restart after wallet account change")
		return true
	}
	v := domain.NewInfo(InfoWalletAccountChanged, time.Now().UnixMilli())
	v.SessionID = e.monitor.SessionID()
	e.sink.Notify(v)
	log.Info("wallet account changed, monitoring restarted")
	return true
}
