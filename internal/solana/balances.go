package solana

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TokenDelta is the before/after balance of one SPL token account.
// Accounts created or closed by the transaction appear with a zero side.
type TokenDelta struct {
	AccountIndex int
	Account      string
	Mint         string
	Owner        string
	Decimals     int32
	Pre          decimal.Decimal // raw units
	Post         decimal.Decimal // raw units
}

// Change returns Post - Pre in raw units.
func (d TokenDelta) Change() decimal.Decimal {
	return d.Post.Sub(d.Pre)
}

// UIChange returns the change scaled by the mint decimals.
func (d TokenDelta) UIChange() decimal.Decimal {
	return d.Change().Shift(-d.Decimals)
}

// TokenDeltas pairs pre and post token balances by account index, sorted by index.
func (tx *Transaction) TokenDeltas() []TokenDelta {
	if tx == nil || tx.Meta == nil {
		return nil
	}
	keys := tx.AccountKeys()

	byIndex := make(map[int]*TokenDelta)
	get := func(b TokenBalance) *TokenDelta {
		d, ok := byIndex[b.AccountIndex]
		if !ok {
			d = &TokenDelta{
				AccountIndex: b.AccountIndex,
				Account:      keyAt(keys, b.AccountIndex),
				Pre:          decimal.Zero,
				Post:         decimal.Zero,
			}
			byIndex[b.AccountIndex] = d
		}
		d.Mint = b.Mint
		d.Decimals = int32(b.Decimals)
		if b.Owner != "" {
			d.Owner = b.Owner
		}
		return d
	}

	for _, b := range tx.Meta.PreTokenBalances {
		get(b).Pre = parseAmount(b.Amount)
	}
	for _, b := range tx.Meta.PostTokenBalances {
		get(b).Post = parseAmount(b.Amount)
	}

	out := make([]TokenDelta, 0, len(byIndex))
	for _, d := range byIndex {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AccountIndex < out[j].AccountIndex
	})
	return out
}

// LamportBalance returns the pre and post lamports of the account at idx.
func (tx *Transaction) LamportBalance(idx int) (pre, post uint64, ok bool) {
	if tx == nil || tx.Meta == nil {
		return 0, 0, false
	}
	if idx < 0 || idx >= len(tx.Meta.PreBalances) || idx >= len(tx.Meta.PostBalances) {
		return 0, 0, false
	}
	return tx.Meta.PreBalances[idx], tx.Meta.PostBalances[idx], true
}

// AccountIndex returns the position of key in AccountKeys, or -1.
func (tx *Transaction) AccountIndex(key string) int {
	for i, k := range tx.AccountKeys() {
		if k == key {
			return i
		}
	}
	return -1
}

func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
