package solana

import (
	"github.com/mr-tron/base58"
)

// Instruction is a compiled instruction with account indices resolved to keys.
type Instruction struct {
	ProgramID  string
	Accounts   []string
	Data       []byte // nil if the base58 payload could not be decoded
	OuterIndex int    // index of the top-level instruction this belongs to
	Inner      bool   // true for CPI instructions
}

// AccountKeys returns static keys followed by lookup-table writable and readonly keys,
// the order in which compiled instruction indices address them.
func (tx *Transaction) AccountKeys() []string {
	if tx == nil || tx.Message == nil {
		return nil
	}
	keys := make([]string, 0, len(tx.Message.AccountKeys))
	keys = append(keys, tx.Message.AccountKeys...)
	if tx.Meta != nil {
		keys = append(keys, tx.Meta.LoadedAddresses.Writable...)
		keys = append(keys, tx.Meta.LoadedAddresses.Readonly...)
	}
	return keys
}

// FeePayer returns the first signer, or "" when the message is missing.
func (tx *Transaction) FeePayer() string {
	if tx == nil || tx.Message == nil || len(tx.Message.AccountKeys) == 0 {
		return ""
	}
	return tx.Message.AccountKeys[0]
}

// Failed reports whether the transaction executed with an error.
func (tx *Transaction) Failed() bool {
	return tx != nil && tx.Meta != nil && tx.Meta.Err != nil
}

// Instructions returns outer instructions each followed by its inner instructions,
// i.e. execution order. Indices that fall outside the account list resolve to "".
func (tx *Transaction) Instructions() []Instruction {
	if tx == nil || tx.Message == nil {
		return nil
	}
	keys := tx.AccountKeys()

	inner := make(map[int][]CompiledInstruction)
	if tx.Meta != nil {
		for _, set := range tx.Meta.InnerInstructions {
			inner[set.Index] = append(inner[set.Index], set.Instructions...)
		}
	}

	var out []Instruction
	for i, ci := range tx.Message.Instructions {
		out = append(out, resolveInstruction(keys, ci, i, false))
		for _, ici := range inner[i] {
			out = append(out, resolveInstruction(keys, ici, i, true))
		}
	}
	return out
}

// ProgramIDs returns the distinct programs invoked, in execution order.
func (tx *Transaction) ProgramIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, ix := range tx.Instructions() {
		if ix.ProgramID == "" {
			continue
		}
		if _, ok := seen[ix.ProgramID]; ok {
			continue
		}
		seen[ix.ProgramID] = struct{}{}
		ids = append(ids, ix.ProgramID)
	}
	return ids
}

func resolveInstruction(keys []string, ci CompiledInstruction, outer int, inner bool) Instruction {
	ix := Instruction{
		ProgramID:  keyAt(keys, ci.ProgramIDIndex),
		Accounts:   make([]string, len(ci.Accounts)),
		OuterIndex: outer,
		Inner:      inner,
	}
	for j, idx := range ci.Accounts {
		ix.Accounts[j] = keyAt(keys, idx)
	}
	if ci.Data != "" {
		if data, err := base58.Decode(ci.Data); err == nil {
			ix.Data = data
		}
	} else {
		ix.Data = []byte{}
	}
	return ix
}

func keyAt(keys []string, idx int) string {
	if idx < 0 || idx >= len(keys) {
		return ""
	}
	return keys[idx]
}
