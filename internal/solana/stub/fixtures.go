package stub

import (
	"strconv"

	"github.com/mr-tron/base58"

	"sandwich-guard/internal/solana"
)

// Account layout produced by SwapTx.
const (
	IdxPayer = iota
	IdxPayerIn
	IdxPayerOut
	IdxPool
	IdxVaultIn
	IdxVaultOut
	IdxProgram
	IdxTokenProgram
)

// PoolAuthority owns the vaults in SwapTx fixtures.
const PoolAuthority = "PoolAuthority1111111111111111111111111111111"

const payerStartLamports = 100 * solana.LamportsPerSOL

// SwapParams describes a synthetic constant-product swap transaction.
type SwapParams struct {
	Signature string
	BlockTime int64
	ProgramID string
	Data      []byte // instruction data, e.g. discriminator
	PoolIndex int    // position of the pool in the instruction accounts
	Pool      string
	Payer     string

	InMint      string
	OutMint     string
	InDecimals  uint8
	OutDecimals uint8

	AmountIn   uint64 // raw units
	AmountOut  uint64
	ReserveIn  uint64 // vault balances before the swap
	ReserveOut uint64
	Fee        uint64

	// SOLIn pays the input leg from the payer's native lamports.
	SOLIn bool
	// Inner places the swap under an outer instruction of this program (e.g. an aggregator).
	Inner string
}

// SwapTx builds a transaction whose balances describe exactly the given swap.
func SwapTx(p SwapParams) *solana.Transaction {
	if p.Payer == "" {
		p.Payer = "Payer11111111111111111111111111111111111111"
	}
	if p.Fee == 0 {
		p.Fee = 5000
	}

	keys := []string{
		p.Payer,
		"PayerInATA111111111111111111111111111111111",
		"PayerOutATA11111111111111111111111111111111",
		p.Pool,
		"VaultIn111111111111111111111111111111111111",
		"VaultOut11111111111111111111111111111111111",
		p.ProgramID,
		solana.TokenProgram,
	}

	accounts := make([]int, 0, p.PoolIndex+5)
	for i := 0; i < p.PoolIndex; i++ {
		accounts = append(accounts, IdxTokenProgram)
	}
	accounts = append(accounts, IdxPool, IdxVaultIn, IdxVaultOut, IdxPayerIn, IdxPayerOut, IdxPayer)

	swapIx := solana.CompiledInstruction{
		ProgramIDIndex: IdxProgram,
		Accounts:       accounts,
		Data:           base58.Encode(p.Data),
	}

	msg := &solana.TransactionMessage{AccountKeys: keys}
	meta := &solana.TransactionMeta{Fee: p.Fee}

	if p.Inner != "" {
		keys = append(keys, p.Inner)
		msg.AccountKeys = keys
		msg.Instructions = []solana.CompiledInstruction{{ProgramIDIndex: len(keys) - 1, Accounts: []int{IdxPayer}, Data: base58.Encode([]byte{0xe5, 0x17})}}
		meta.InnerInstructions = []solana.InnerInstructionSet{{Index: 0, Instructions: []solana.CompiledInstruction{swapIx}}}
	} else {
		msg.Instructions = []solana.CompiledInstruction{swapIx}
	}

	meta.PreBalances = make([]uint64, len(keys))
	meta.PostBalances = make([]uint64, len(keys))
	for i := range keys {
		meta.PreBalances[i] = 2_039_280
		meta.PostBalances[i] = 2_039_280
	}
	meta.PreBalances[IdxPayer] = payerStartLamports
	meta.PostBalances[IdxPayer] = payerStartLamports - p.Fee
	if p.SOLIn {
		meta.PostBalances[IdxPayer] -= p.AmountIn
	}

	meta.PreTokenBalances = []solana.TokenBalance{
		tokenBalance(IdxVaultIn, p.InMint, PoolAuthority, p.ReserveIn, p.InDecimals),
		tokenBalance(IdxVaultOut, p.OutMint, PoolAuthority, p.ReserveOut, p.OutDecimals),
	}
	meta.PostTokenBalances = []solana.TokenBalance{
		tokenBalance(IdxVaultIn, p.InMint, PoolAuthority, p.ReserveIn+p.AmountIn, p.InDecimals),
		tokenBalance(IdxVaultOut, p.OutMint, PoolAuthority, p.ReserveOut-p.AmountOut, p.OutDecimals),
		tokenBalance(IdxPayerOut, p.OutMint, p.Payer, p.AmountOut, p.OutDecimals),
	}
	if !p.SOLIn {
		meta.PreTokenBalances = append(meta.PreTokenBalances, tokenBalance(IdxPayerIn, p.InMint, p.Payer, p.AmountIn, p.InDecimals))
		meta.PostTokenBalances = append(meta.PostTokenBalances, tokenBalance(IdxPayerIn, p.InMint, p.Payer, 0, p.InDecimals))
	}

	return &solana.Transaction{
		Slot:      p.BlockTime,
		Signature: p.Signature,
		BlockTime: p.BlockTime,
		Meta:      meta,
		Message:   msg,
	}
}

// Hop is one pool leg of a routed swap.
type Hop struct {
	ProgramID string
	Data      []byte
	PoolIndex int
	Pool      string
	VaultIn   string
	VaultOut  string

	InMint      string
	OutMint     string
	InDecimals  uint8
	OutDecimals uint8

	AmountIn   uint64
	AmountOut  uint64
	ReserveIn  uint64
	ReserveOut uint64
}

// RouteTx builds an aggregator transaction: one outer instruction of router
// listing every account of every hop, with each hop as an inner instruction.
// The payer holds one token account per mint; intermediate mints net to zero.
func RouteTx(signature string, blockTime int64, router string, hops []Hop) *solana.Transaction {
	const payer = "Payer11111111111111111111111111111111111111"
	const fee = 5000

	keys := []string{payer, router, solana.TokenProgram}
	index := map[string]int{}
	key := func(k string) int {
		if i, ok := index[k]; ok {
			return i
		}
		keys = append(keys, k)
		index[k] = len(keys) - 1
		return index[k]
	}
	index[payer], index[router], index[solana.TokenProgram] = 0, 1, 2
	ata := func(mint string) string { return "PayerATA-" + mint }

	meta := &solana.TransactionMeta{Fee: fee}
	payerPre := map[string]uint64{}
	payerPost := map[string]uint64{}
	decimals := map[string]uint8{}

	inner := make([]solana.CompiledInstruction, 0, len(hops))
	for _, h := range hops {
		accounts := make([]int, 0, h.PoolIndex+6)
		for i := 0; i < h.PoolIndex; i++ {
			accounts = append(accounts, 2)
		}
		accounts = append(accounts, key(h.Pool), key(h.VaultIn), key(h.VaultOut), key(ata(h.InMint)), key(ata(h.OutMint)), 0)
		programIdx := key(h.ProgramID)
		inner = append(inner, solana.CompiledInstruction{
			ProgramIDIndex: programIdx,
			Accounts:       accounts,
			Data:           base58.Encode(h.Data),
		})

		meta.PreTokenBalances = append(meta.PreTokenBalances,
			tokenBalance(index[h.VaultIn], h.InMint, PoolAuthority, h.ReserveIn, h.InDecimals),
			tokenBalance(index[h.VaultOut], h.OutMint, PoolAuthority, h.ReserveOut, h.OutDecimals))
		meta.PostTokenBalances = append(meta.PostTokenBalances,
			tokenBalance(index[h.VaultIn], h.InMint, PoolAuthority, h.ReserveIn+h.AmountIn, h.InDecimals),
			tokenBalance(index[h.VaultOut], h.OutMint, PoolAuthority, h.ReserveOut-h.AmountOut, h.OutDecimals))

		decimals[h.InMint], decimals[h.OutMint] = h.InDecimals, h.OutDecimals
		if _, ok := payerPre[h.InMint]; !ok {
			payerPre[h.InMint] = h.AmountIn
			payerPost[h.InMint] = h.AmountIn
		}
		if _, ok := payerPre[h.OutMint]; !ok {
			payerPre[h.OutMint] = 0
			payerPost[h.OutMint] = 0
		}
		payerPost[h.InMint] -= h.AmountIn
		payerPost[h.OutMint] += h.AmountOut
	}

	// The route lists every account except its own program.
	route := make([]int, 0, len(keys)-1)
	for i := range keys {
		if i != 1 {
			route = append(route, i)
		}
	}

	for _, h := range hops {
		for _, mint := range []string{h.InMint, h.OutMint} {
			idx := index[ata(mint)]
			if hasBalance(meta.PreTokenBalances, idx) {
				continue
			}
			meta.PreTokenBalances = append(meta.PreTokenBalances, tokenBalance(idx, mint, payer, payerPre[mint], decimals[mint]))
			meta.PostTokenBalances = append(meta.PostTokenBalances, tokenBalance(idx, mint, payer, payerPost[mint], decimals[mint]))
		}
	}

	meta.PreBalances = make([]uint64, len(keys))
	meta.PostBalances = make([]uint64, len(keys))
	for i := range keys {
		meta.PreBalances[i] = 2_039_280
		meta.PostBalances[i] = 2_039_280
	}
	meta.PreBalances[0] = payerStartLamports
	meta.PostBalances[0] = payerStartLamports - fee
	meta.InnerInstructions = []solana.InnerInstructionSet{{Index: 0, Instructions: inner}}

	return &solana.Transaction{
		Slot:      blockTime,
		Signature: signature,
		BlockTime: blockTime,
		Meta:      meta,
		Message: &solana.TransactionMessage{
			AccountKeys: keys,
			Instructions: []solana.CompiledInstruction{
				{ProgramIDIndex: 1, Accounts: route, Data: base58.Encode([]byte{0xe5, 0x17})},
			},
		},
	}
}

func hasBalance(balances []solana.TokenBalance, idx int) bool {
	for _, b := range balances {
		if b.AccountIndex == idx {
			return true
		}
	}
	return false
}

// TransferTx builds a plain system transfer, which is never a swap.
func TransferTx(signature string, blockTime int64) *solana.Transaction {
	return &solana.Transaction{
		Slot:      blockTime,
		Signature: signature,
		BlockTime: blockTime,
		Message: &solana.TransactionMessage{
			AccountKeys: []string{"Payer11111111111111111111111111111111111111", "Dest1111111111111111111111111111111111111111", solana.SystemProgram},
			Instructions: []solana.CompiledInstruction{
				{ProgramIDIndex: 2, Accounts: []int{0, 1}, Data: base58.Encode([]byte{2, 0, 0, 0, 0xe8, 0x03, 0, 0, 0, 0, 0, 0})},
			},
		},
		Meta: &solana.TransactionMeta{
			Fee:          5000,
			PreBalances:  []uint64{payerStartLamports, 0, 1},
			PostBalances: []uint64{payerStartLamports - 5000 - 1000, 1000, 1},
		},
	}
}

func tokenBalance(idx int, mint, owner string, amount uint64, decimals uint8) solana.TokenBalance {
	return solana.TokenBalance{
		AccountIndex: idx,
		Mint:         mint,
		Owner:        owner,
		Amount:       strconv.FormatUint(amount, 10),
		Decimals:     decimals,
	}
}
