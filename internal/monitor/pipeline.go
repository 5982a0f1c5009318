package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"sandwich-guard/internal/observability"
	"sandwich-guard/internal/risk"
	"sandwich-guard/internal/solana"
)

// processSignature runs one signature through fetch, classify, ledger,
// impact and scoring, and hands the verdict to the sink.
//
// The signature is claimed in the seen-set only after a successful fetch, so
// transient failures are retried on the next pass while concurrent passes over
// the same signature produce a single verdict.
func (s *session) processSignature(ctx context.Context, info solana.SignatureInfo) error {
	m := s.m
	now := m.now()
	if m.seen.Contains(info.Signature, now) {
		return nil
	}
	if info.BlockTime != nil && now.Sub(time.Unix(*info.BlockTime, 0)) > m.settings.SeenTTL {
		m.seen.Add(info.Signature, now)
		return nil
	}

	start := time.Now()
	tx, err := m.rpc.GetTransaction(ctx, info.Signature)
	if ctx.Err() != nil || s.isStopped() {
		// Stopped while the fetch was in flight: discard the result.
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%w: transaction %s: %v", ErrFetchFailure, info.Signature, err)
	}
	if tx == nil {
		return errNotAvailable
	}
	if !m.seen.Add(info.Signature, m.now()) {
		return nil
	}
	observability.RecordTransactionProcessed()

	cls := m.classifier.Classify(tx)
	if !cls.IsSwap {
		return nil
	}
	observability.RecordSwapClassified(cls.Program)

	cfg := m.cfg.Load()
	tsMs := m.now().UnixMilli()
	if tx.BlockTime > 0 {
		tsMs = tx.BlockTime * 1000
	}

	var (
		count         int
		impactPercent float64
	)
	if cls.HasPool() {
		pool := *cls.PoolID
		count = m.ledger.Record(pool, tsMs, cfg.TimeWindowSeconds)

		pct, err := m.estimator.Estimate(tx, pool)
		if err != nil {
			observability.RecordDecodeFailure()
			s.log.WithError(err).WithFields(logrus.Fields{
				"signature": info.Signature,
				"pool":      pool,
			}).Debug("price impact unavailable, scoring without it")
		} else {
			impactPercent = pct
			observability.RecordPriceImpact(pct)
		}
	}

	v := m.scorer.Score(risk.Input{
		Signature:      info.Signature,
		Classification: cls,
		ActivityCount:  count,
		ImpactPercent:  impactPercent,
		TimestampMs:    m.now().UnixMilli(),
	})
	if s.emit(v) {
		observability.RecordProcessingLatency(time.Since(start).Seconds())
		s.log.WithFields(logrus.Fields{
			"signature": info.Signature,
			"program":   cls.Program,
			"risk":      v.Level,
			"activity":  count,
			"impact":    impactPercent,
		}).Debug("swap scored")
	}
	return nil
}
