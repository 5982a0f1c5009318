package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"sandwich-guard/internal/domain"
	"sandwich-guard/internal/observability"
	"sandwich-guard/internal/solana"
	"sandwich-guard/internal/storage"
)

const unsubscribeTimeout = 5 * time.Second

// session owns the loops of one Start..Stop cycle.
type session struct {
	m            *Monitor
	id           string
	wallet       string
	cancel       context.CancelFunc
	group        *errgroup.Group
	housekeeping *cron.Cron
	log          logrus.FieldLogger

	// emitMu guards stopped. emit holds it shared while notifying so that
	// shutdown returns only after in-flight notifications are done.
	emitMu  sync.RWMutex
	stopped bool

	failMu       sync.Mutex
	failures     int
	failReported bool
}

// shutdown blocks further verdicts, cancels the loops and waits for them.
func (s *session) shutdown() {
	s.emitMu.Lock()
	s.stopped = true
	s.emitMu.Unlock()

	s.cancel()
	if s.group != nil {
		_ = s.group.Wait()
	}
	<-s.housekeeping.Stop().Done()
}

// emit forwards v to the sink unless the session has stopped.
func (s *session) emit(v domain.RiskVerdict) bool {
	s.emitMu.RLock()
	defer s.emitMu.RUnlock()
	if s.stopped {
		return false
	}
	v.SessionID = s.id
	s.m.sink.Notify(v)
	observability.RecordVerdict(string(v.Kind), v.Level.String())
	return true
}

func (s *session) isStopped() bool {
	s.emitMu.RLock()
	defer s.emitMu.RUnlock()
	return s.stopped
}

// addresses returns the wallet followed by the watched pools.
func (s *session) addresses() []string {
	out := []string{s.wallet}
	for _, p := range s.m.settings.WatchedPools {
		if p != "" && p != s.wallet {
			out = append(out, p)
		}
	}
	return out
}

// pollLoop polls every watched address on the refresh interval until ctx is done.
func (s *session) pollLoop(ctx context.Context) error {
	log := s.log.WithField("loop", "poll")
	log.Debug("poll loop started")
	defer log.Debug("poll loop finished")

	for {
		if ctx.Err() != nil {
			return nil
		}

		delay := s.m.cfg.Load().RefreshRate()
		if err := s.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.fetchFailed("poll", err)
			delay *= time.Duration(s.m.settings.ErrorBackoffMultiplier)
		} else {
			s.fetchSucceeded()
		}

		if !sleep(ctx, delay) {
			return nil
		}
	}
}

// pollOnce handles new signatures of each address since its cursor.
func (s *session) pollOnce(ctx context.Context) error {
	var firstErr error
	for _, addr := range s.addresses() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.pollAddress(ctx, addr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *session) pollAddress(ctx context.Context, addr string) error {
	var until string
	cursor, err := s.m.cursors.GetCursor(ctx, addr)
	switch {
	case err == nil:
		until = cursor.Signature
	case !errors.Is(err, storage.ErrNotFound):
		s.log.WithError(err).WithField("address", addr).Warn("read cursor failed, polling latest batch")
	}

	sigs, err := s.m.rpc.GetSignaturesForAddress(ctx, addr, &solana.SignaturesOpts{
		Until: until,
		Limit: s.m.settings.PollBatchSize,
	})
	if err != nil {
		return fmt.Errorf("%w: signatures for %s: %v", ErrFetchFailure, addr, err)
	}
	if len(sigs) == 0 {
		return nil
	}

	complete, err := s.processBatch(ctx, sigs)
	if complete && ctx.Err() == nil {
		next := &storage.Cursor{Address: addr, Signature: sigs[0].Signature, Slot: sigs[0].Slot}
		if cerr := s.m.cursors.SetCursor(ctx, next); cerr != nil {
			s.log.WithError(cerr).WithField("address", addr).Warn("save cursor failed")
		}
	}
	return err
}

// walletLoop keeps an account subscription on the wallet and runs a bounded
// pass over its latest signatures on every notification.
func (s *session) walletLoop(ctx context.Context) error {
	log := s.log.WithField("loop", "wallet")
	log.Debug("wallet loop started")
	defer log.Debug("wallet loop finished")

	for {
		if ctx.Err() != nil {
			return nil
		}

		sub, err := s.m.ws.AccountSubscribe(ctx, s.wallet)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.fetchFailed("wallet", fmt.Errorf("%w: subscribe %s: %v", ErrFetchFailure, s.wallet, err))
			if !sleep(ctx, s.backoff()) {
				return nil
			}
			observability.RecordSubscriptionRestart()
			continue
		}
		log.Debug("wallet subscription active")

		s.consume(ctx, sub)

		unsubCtx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
		if err := sub.Unsubscribe(unsubCtx); err != nil {
			log.WithError(err).Debug("unsubscribe failed")
		}
		cancel()

		if ctx.Err() != nil {
			return nil
		}
		log.Warn("wallet subscription ended, resubscribing")
		if !sleep(ctx, s.backoff()) {
			return nil
		}
		observability.RecordSubscriptionRestart()
	}
}

// consume runs wallet passes until the subscription ends or ctx is done.
func (s *session) consume(ctx context.Context, sub solana.Subscription) {
	notes := sub.Notifications()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notes:
			if !ok {
				return
			}
			s.log.WithField("slot", n.Slot).Debug("wallet account changed")
			if err := s.walletPass(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.fetchFailed("wallet", err)
			} else {
				s.fetchSucceeded()
			}
		}
	}
}

func (s *session) walletPass(ctx context.Context) error {
	sigs, err := s.m.rpc.GetSignaturesForAddress(ctx, s.wallet, &solana.SignaturesOpts{
		Limit: s.m.settings.WalletBatchSize,
	})
	if err != nil {
		return fmt.Errorf("%w: wallet signatures: %v", ErrFetchFailure, err)
	}
	_, err = s.processBatch(ctx, sigs)
	return err
}

// processBatch handles signatures oldest first. complete is false when any
// signature must be retried on a later pass. The returned error is the first
// fetch failure, after the rest of the batch has been attempted.
func (s *session) processBatch(ctx context.Context, sigs []solana.SignatureInfo) (complete bool, err error) {
	complete = true
	for i := len(sigs) - 1; i >= 0; i-- {
		if ctx.Err() != nil || s.isStopped() {
			return false, ctx.Err()
		}
		perr := s.processSignature(ctx, sigs[i])
		switch {
		case perr == nil:
		case errors.Is(perr, errNotAvailable):
			complete = false
		default:
			complete = false
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if err == nil {
				err = perr
			}
			s.log.WithError(perr).WithField("signature", sigs[i].Signature).Warn("transaction fetch failed")
		}
	}
	return complete, err
}

func (s *session) backoff() time.Duration {
	return s.m.cfg.Load().RefreshRate() * time.Duration(s.m.settings.ErrorBackoffMultiplier)
}

// fetchFailed records a failure and, once per streak, tells the user.
func (s *session) fetchFailed(loop string, err error) {
	observability.RecordFetchFailure(loop)
	s.log.WithError(err).WithField("loop", loop).Warn("fetch failed, backing off")

	s.failMu.Lock()
	s.failures++
	report := s.failures >= s.m.settings.FailureReportAfter && !s.failReported
	if report {
		s.failReported = true
	}
	n := s.failures
	s.failMu.Unlock()

	if report {
		s.emit(domain.NewInfo(fmt.Sprintf(
			"Unable to reach the Solana RPC endpoint (%d consecutive failures). Monitoring continues and will retry with backoff.", n),
			s.m.now().UnixMilli()))
	}
}

func (s *session) fetchSucceeded() {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures = 0
	s.failReported = false
}

// sleep waits for d or until ctx is done. It reports whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
