// Package risk turns a classified swap into a graded verdict.
package risk

import (
	"fmt"
	"time"

	"sandwich-guard/internal/config"
	"sandwich-guard/internal/domain"
)

// Verdict reasons.
const (
	ReasonLargeTrade = "Large transaction size relative to pool liquidity"
	ReasonNone       = "No suspicious pattern detected"
)

// Input is everything the policy looks at for one transaction.
type Input struct {
	Signature      string
	Classification domain.Classification
	ActivityCount  int     // swaps on the pool inside the window, this one included
	ImpactPercent  float64 // 0 when unknown
	TimestampMs    int64
}

// Evaluate applies the scoring policy. The first matching rule wins, and rules
// are ordered from high to low severity:
//
//  1. pool known and ActivityCount >= PoolActivityThreshold -> high
//  2. NotionalSize > LargeTradeSize -> medium
//  3. ImpactPercent > PriceImpactWarningThreshold -> medium
//  4. otherwise low
func Evaluate(cfg config.DetectionConfig, in Input) domain.RiskVerdict {
	v := domain.RiskVerdict{
		Kind:      domain.VerdictRisk,
		Signature: in.Signature,
		Pool:      in.Classification.PoolID,
		Timestamp: in.TimestampMs,
	}

	cls := in.Classification
	switch {
	case cls.HasPool() && in.ActivityCount >= cfg.PoolActivityThreshold:
		v.Level = domain.RiskHigh
		v.Reason = fmt.Sprintf("Unusual activity detected in pool %s: %d swaps in %ds",
			*cls.PoolID, in.ActivityCount, cfg.TimeWindowSeconds)
	case cls.NotionalSize > cfg.LargeTradeSize:
		v.Level = domain.RiskMedium
		v.Reason = ReasonLargeTrade
	case in.ImpactPercent > cfg.PriceImpactWarningThreshold:
		v.Level = domain.RiskMedium
		v.Reason = fmt.Sprintf("Transaction had %.2f%% price impact. Potential sandwich attack. "+
			"Suggestion: use slippage tolerance at or below %.2f%% or submit through a private RPC endpoint",
			in.ImpactPercent, cfg.SlippageThreshold)
	default:
		v.Level = domain.RiskLow
		v.Reason = ReasonNone
	}
	return v
}

// Scorer evaluates against the latest detection config at call time.
type Scorer struct {
	store *config.Store
	now   func() time.Time
}

// NewScorer creates a scorer reading thresholds from store.
func NewScorer(store *config.Store) *Scorer {
	return &Scorer{store: store, now: time.Now}
}

// Score grades one swap. A zero TimestampMs is stamped with the current time.
func (s *Scorer) Score(in Input) domain.RiskVerdict {
	if in.TimestampMs == 0 {
		in.TimestampMs = s.now().UnixMilli()
	}
	return Evaluate(s.store.Load(), in)
}
