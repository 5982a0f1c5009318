package discovery

import (
	"github.com/shopspring/decimal"

	"sandwich-guard/internal/domain"
	"sandwich-guard/internal/solana"
)

// dustLamports is the SOL movement below which the payer's lamport change is
// treated as rent for newly created accounts rather than a traded amount.
const dustLamports = 10_000_000 // 0.01 SOL

// Classifier decides whether a transaction is a DEX swap and extracts the
// pool and trade size. It holds no mutable state: the same transaction always
// yields the same Classification.
type Classifier struct {
	registry *Registry
}

// NewClassifier creates a classifier over the given registry.
// A nil registry uses NewRegistry().
func NewClassifier(registry *Registry) *Classifier {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Classifier{registry: registry}
}

// Registry returns the underlying program registry.
func (c *Classifier) Registry() *Registry {
	return c.registry
}

// Classify inspects outer and inner instructions. Undecodable pool layouts
// leave PoolID nil; they never turn a swap into a non-swap.
func (c *Classifier) Classify(tx *solana.Transaction) domain.Classification {
	var result domain.Classification
	if tx == nil || tx.Message == nil {
		return result
	}

	var first *Program
	for _, ix := range tx.Instructions() {
		prog, ok := c.registry.Lookup(ix.ProgramID)
		if !ok {
			continue
		}
		if first == nil {
			first = prog
		}
		pool, ok := poolAccount(prog, ix)
		if !ok {
			continue
		}
		result.IsSwap = true
		result.Program = prog.Name
		result.ProgramID = prog.ID
		result.PoolID = &pool
		break
	}

	if first == nil {
		return result
	}
	if !result.IsSwap {
		result.IsSwap = true
		result.Program = first.Name
		result.ProgramID = first.ID
	}

	result.NotionalSize = notional(tx)
	return result
}

// PoolInstructions returns the DEX instructions, outer or inner, whose decoded
// pool account is poolID. Aggregator routes are never returned: their account
// lists span every hop of the route.
func (c *Classifier) PoolInstructions(tx *solana.Transaction, poolID string) []solana.Instruction {
	if tx == nil || tx.Message == nil || poolID == "" {
		return nil
	}
	var out []solana.Instruction
	for _, ix := range tx.Instructions() {
		prog, ok := c.registry.Lookup(ix.ProgramID)
		if !ok {
			continue
		}
		if pool, ok := poolAccount(prog, ix); ok && pool == poolID {
			out = append(out, ix)
		}
	}
	return out
}

// poolAccount decodes the pool account of a direct DEX instruction.
func poolAccount(prog *Program, ix solana.Instruction) (string, bool) {
	if prog.Aggregator || ix.Data == nil {
		return "", false
	}
	idx, ok := prog.poolIndexFor(ix.Data)
	if !ok || idx >= len(ix.Accounts) || ix.Accounts[idx] == "" {
		return "", false
	}
	return ix.Accounts[idx], true
}

// notional estimates the size of the payer's input leg in UI units.
// SOL spent (native plus wSOL, fee excluded) wins when it exceeds rent dust;
// otherwise the largest decrease among the payer's token accounts is used.
func notional(tx *solana.Transaction) float64 {
	payer := tx.FeePayer()
	if payer == "" || tx.Meta == nil {
		return 0
	}

	lamportsSpent := decimal.Zero
	if pre, post, ok := tx.LamportBalance(0); ok {
		spent := decimal.NewFromInt(int64(pre)).
			Sub(decimal.NewFromInt(int64(post))).
			Sub(decimal.NewFromInt(int64(tx.Meta.Fee)))
		if spent.IsPositive() {
			lamportsSpent = spent
		}
	}

	wsolSpent := decimal.Zero
	tokenSpent := decimal.Zero
	for _, d := range tx.TokenDeltas() {
		if d.Owner != payer {
			continue
		}
		change := d.Change()
		if !change.IsNegative() {
			continue
		}
		if d.Mint == solana.WSOL {
			wsolSpent = wsolSpent.Add(change.Neg())
			continue
		}
		if ui := d.UIChange().Neg(); ui.GreaterThan(tokenSpent) {
			tokenSpent = ui
		}
	}

	solSpent := lamportsSpent.Add(wsolSpent)
	if solSpent.GreaterThan(decimal.NewFromInt(dustLamports)) || tokenSpent.IsZero() {
		f, _ := solSpent.Shift(-9).Float64()
		return f
	}
	f, _ := tokenSpent.Float64()
	return f
}
