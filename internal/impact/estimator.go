// Package impact estimates how far a swap's execution price moved away from
// the pool's pre-trade price.
package impact

import (
	"errors"

	"github.com/shopspring/decimal"

	"sandwich-guard/internal/discovery"
	"sandwich-guard/internal/solana"
)

// ErrDecodeFailure is returned when the pool reserves or swap amounts cannot
// be recovered from the transaction's balance changes.
var ErrDecodeFailure = errors.New("impact: cannot decode pool reserves")

const divPrecision = 18

var hundred = decimal.NewFromInt(100)

// Leg is one side of a swap as seen from the pool.
type Leg struct {
	Account    string // vault account, or the pool account for native SOL reserves
	Mint       string // empty for native SOL
	ReservePre decimal.Decimal
	Amount     decimal.Decimal // absolute change, raw units
}

// Swap is the decoded pool-side view of a swap.
type Swap struct {
	In  Leg // vault that received tokens
	Out Leg // vault that paid tokens out
}

// PreTradePrice is reserveIn / reserveOut before the trade.
func (s Swap) PreTradePrice() decimal.Decimal {
	return s.In.ReservePre.DivRound(s.Out.ReservePre, divPrecision)
}

// ExecutionPrice is amountIn / amountOut.
func (s Swap) ExecutionPrice() decimal.Decimal {
	return s.In.Amount.DivRound(s.Out.Amount, divPrecision)
}

// ImpactPercent returns the price impact in percent, never negative.
func (s Swap) ImpactPercent() decimal.Decimal {
	pre := s.PreTradePrice()
	if pre.IsZero() {
		return decimal.Zero
	}
	pct := s.ExecutionPrice().Sub(pre).DivRound(pre, divPrecision).Mul(hundred)
	if pct.IsNegative() {
		return decimal.Zero
	}
	return pct
}

// PoolLocator finds the instructions that trade directly against a pool.
// *discovery.Classifier implements it.
type PoolLocator interface {
	PoolInstructions(tx *solana.Transaction, poolID string) []solana.Instruction
}

// Estimator decodes pool legs from the accounts of a pool's own instructions.
// It is stateless and safe for concurrent use.
type Estimator struct {
	locator PoolLocator
}

// NewEstimator creates an estimator. A nil locator uses a classifier over the
// default DEX registry.
func NewEstimator(locator PoolLocator) *Estimator {
	if locator == nil {
		locator = discovery.NewClassifier(nil)
	}
	return &Estimator{locator: locator}
}

// Estimate returns the price impact of tx against poolID in percent.
func (e *Estimator) Estimate(tx *solana.Transaction, poolID string) (float64, error) {
	swap, err := e.Decode(tx, poolID)
	if err != nil {
		return 0, err
	}
	f, _ := swap.ImpactPercent().Float64()
	return f, nil
}

// Decode recovers the pool's input and output legs.
//
// Vaults are the token accounts referenced by DEX instructions whose pool
// account is poolID and are not owned by the fee payer. Aggregator routes are
// ignored, so other hops of a multi-pool route never contribute a leg. The
// pool account's own lamports count as a reserve when no token vault moved on
// that side, which covers bonding curves that hold SOL natively. Both legs
// must carry different mints.
func (e *Estimator) Decode(tx *solana.Transaction, poolID string) (Swap, error) {
	var swap Swap
	if tx == nil || tx.Meta == nil || tx.Message == nil || poolID == "" {
		return swap, ErrDecodeFailure
	}

	touched := vaultCandidates(e.locator.PoolInstructions(tx, poolID))
	if len(touched) == 0 {
		return swap, ErrDecodeFailure
	}
	payer := tx.FeePayer()

	var haveIn, haveOut bool
	for _, d := range tx.TokenDeltas() {
		if _, ok := touched[d.Account]; !ok || d.Owner == payer {
			continue
		}
		change := d.Change()
		switch {
		case change.IsPositive():
			if !haveIn || change.GreaterThan(swap.In.Amount) {
				swap.In = Leg{Account: d.Account, Mint: d.Mint, ReservePre: d.Pre, Amount: change}
				haveIn = true
			}
		case change.IsNegative():
			if !haveOut || change.Neg().GreaterThan(swap.Out.Amount) {
				swap.Out = Leg{Account: d.Account, Mint: d.Mint, ReservePre: d.Pre, Amount: change.Neg()}
				haveOut = true
			}
		}
	}

	if !haveIn || !haveOut {
		if pre, post, ok := tx.LamportBalance(tx.AccountIndex(poolID)); ok && pre != post {
			native := Leg{Account: poolID, ReservePre: decimal.NewFromInt(int64(pre))}
			change := decimal.NewFromInt(int64(post)).Sub(native.ReservePre)
			switch {
			case change.IsPositive() && !haveIn:
				native.Amount = change
				swap.In, haveIn = native, true
			case change.IsNegative() && !haveOut:
				native.Amount = change.Neg()
				swap.Out, haveOut = native, true
			}
		}
	}

	if !haveIn || !haveOut || swap.In.ReservePre.IsZero() || swap.Out.ReservePre.IsZero() {
		return Swap{}, ErrDecodeFailure
	}
	if swap.In.Mint == swap.Out.Mint {
		return Swap{}, ErrDecodeFailure
	}
	return swap, nil
}

// vaultCandidates collects the accounts of the pool's own instructions.
func vaultCandidates(ixs []solana.Instruction) map[string]struct{} {
	out := make(map[string]struct{})
	for _, ix := range ixs {
		for _, a := range ix.Accounts {
			out[a] = struct{}{}
		}
	}
	return out
}
