package discovery

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandwich-guard/internal/solana"
	"sandwich-guard/internal/solana/stub"
)

const testPool = "Pool111111111111111111111111111111111111111"

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func solForToken(programID string, data []byte, poolIndex int) stub.SwapParams {
	return stub.SwapParams{
		Signature:   "sig-1",
		BlockTime:   1700000000,
		ProgramID:   programID,
		Data:        data,
		PoolIndex:   poolIndex,
		Pool:        testPool,
		InMint:      solana.WSOL,
		OutMint:     "TokenMint1111111111111111111111111111111111",
		InDecimals:  9,
		OutDecimals: 6,
		AmountIn:    2 * solana.LamportsPerSOL,
		AmountOut:   1_000_000_000,
		ReserveIn:   100 * solana.LamportsPerSOL,
		ReserveOut:  50_000_000_000,
		SOLIn:       true,
	}
}

func TestClassifier_DecodesPoolPerProgram(t *testing.T) {
	tests := []struct {
		name      string
		programID string
		data      []byte
		poolIndex int
		program   string
	}{
		{"raydium v4 swap base in", RaydiumAMMV4, []byte{0x09, 1, 2, 3}, 1, "raydium_amm_v4"},
		{"raydium v4 swap base out", RaydiumAMMV4, []byte{0x0b}, 1, "raydium_amm_v4"},
		{"raydium cpmm", RaydiumCPMM, mustHex(t, "8fbe5adac41e33de00"), 3, "raydium_cpmm"},
		{"raydium clmm swap_v2", RaydiumCLMM, mustHex(t, "2b04ed0b1ac91e62"), 2, "raydium_clmm"},
		{"whirlpool swap", OrcaWhirlpool, mustHex(t, "f8c69e91e17587c8"), 2, "orca_whirlpool"},
		{"whirlpool swap_v2", OrcaWhirlpool, mustHex(t, "2b04ed0b1ac91e62"), 4, "orca_whirlpool"},
		{"orca legacy", OrcaLegacy, []byte{0x01}, 0, "orca_legacy"},
		{"meteora dlmm", MeteoraDLMM, mustHex(t, "f8c69e91e17587c8"), 0, "meteora_dlmm"},
		{"pumpfun buy", PumpFun, mustHex(t, "66063d1201daebea"), 3, "pumpfun"},
		{"pump amm sell", PumpAMM, mustHex(t, "33e685a4017f83ad"), 0, "pump_amm"},
	}

	c := NewClassifier(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := stub.SwapTx(solForToken(tt.programID, tt.data, tt.poolIndex))

			cls := c.Classify(tx)
			assert.True(t, cls.IsSwap)
			assert.Equal(t, tt.program, cls.Program)
			assert.Equal(t, tt.programID, cls.ProgramID)
			require.NotNil(t, cls.PoolID)
			assert.Equal(t, testPool, *cls.PoolID)
		})
	}
}

func TestClassifier_NonSwap(t *testing.T) {
	c := NewClassifier(nil)

	cls := c.Classify(stub.TransferTx("sig-transfer", 1700000000))
	assert.False(t, cls.IsSwap)
	assert.Nil(t, cls.PoolID)
	assert.Zero(t, cls.NotionalSize)

	assert.False(t, c.Classify(nil).IsSwap)
	assert.False(t, c.Classify(&solana.Transaction{Signature: "no-message"}).IsSwap)
}

func TestClassifier_UnknownLayoutKeepsSwapWithoutPool(t *testing.T) {
	c := NewClassifier(nil)

	// Raydium v4 deposit (tag 3) is not a swap layout.
	tx := stub.SwapTx(solForToken(RaydiumAMMV4, []byte{0x03}, 1))
	cls := c.Classify(tx)

	assert.True(t, cls.IsSwap)
	assert.Equal(t, "raydium_amm_v4", cls.Program)
	assert.Nil(t, cls.PoolID)
}

func TestClassifier_ShortAccountListFailsSoft(t *testing.T) {
	c := NewClassifier(nil)

	tx := stub.SwapTx(solForToken(RaydiumCPMM, mustHex(t, "8fbe5adac41e33de"), 3))
	tx.Message.Instructions[0].Accounts = tx.Message.Instructions[0].Accounts[:2]

	cls := c.Classify(tx)
	assert.True(t, cls.IsSwap)
	assert.Nil(t, cls.PoolID)
}

func TestClassifier_AggregatorRoutesToInnerPool(t *testing.T) {
	c := NewClassifier(nil)

	params := solForToken(RaydiumAMMV4, []byte{0x09}, 1)
	params.Inner = JupiterV6
	tx := stub.SwapTx(params)

	cls := c.Classify(tx)
	assert.True(t, cls.IsSwap)
	assert.Equal(t, "raydium_amm_v4", cls.Program)
	require.NotNil(t, cls.PoolID)
	assert.Equal(t, testPool, *cls.PoolID)
}

func TestClassifier_PoolInstructionsSkipsRouteAndOtherHops(t *testing.T) {
	hop := func(poolID, vaultIn, vaultOut, inMint, outMint string) stub.Hop {
		return stub.Hop{
			ProgramID: RaydiumAMMV4, Data: []byte{0x09}, PoolIndex: 1,
			Pool: poolID, VaultIn: vaultIn, VaultOut: vaultOut,
			InMint: inMint, OutMint: outMint,
			AmountIn: 10, AmountOut: 9, ReserveIn: 1000, ReserveOut: 1000,
		}
	}
	tx := stub.RouteTx("sig-route", 1700000000, JupiterV6, []stub.Hop{
		hop("PoolA", "VaultA1", "VaultA2", solana.WSOL, "MintB"),
		hop("PoolB", "VaultB1", "VaultB2", "MintB", "MintC"),
	})
	c := NewClassifier(nil)

	cls := c.Classify(tx)
	require.True(t, cls.HasPool())
	assert.Equal(t, "PoolA", *cls.PoolID)

	got := c.PoolInstructions(tx, "PoolA")
	require.Len(t, got, 1)
	assert.Equal(t, RaydiumAMMV4, got[0].ProgramID)
	assert.True(t, got[0].Inner)
	assert.Contains(t, got[0].Accounts, "VaultA1")
	assert.NotContains(t, got[0].Accounts, "VaultB2")

	got = c.PoolInstructions(tx, "PoolB")
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Accounts, "VaultB2")

	assert.Empty(t, c.PoolInstructions(tx, "VaultA1"))
	assert.Empty(t, c.PoolInstructions(nil, "PoolA"))
}

func TestClassifier_RegisteredProgramIDWithoutLayout(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterProgramID("custom", "Custom1111111111111111111111111111111111111")
	c := NewClassifier(reg)

	tx := stub.SwapTx(solForToken("Custom1111111111111111111111111111111111111", []byte{0x42}, 0))
	cls := c.Classify(tx)

	assert.True(t, cls.IsSwap)
	assert.Equal(t, "custom", cls.Program)
	assert.Nil(t, cls.PoolID)
}

func TestClassifier_NotionalSOLIn(t *testing.T) {
	c := NewClassifier(nil)

	tx := stub.SwapTx(solForToken(RaydiumAMMV4, []byte{0x09}, 1))
	cls := c.Classify(tx)

	// 2 SOL in, fee excluded.
	assert.InDelta(t, 2.0, cls.NotionalSize, 1e-9)
}

func TestClassifier_NotionalTokenIn(t *testing.T) {
	c := NewClassifier(nil)

	params := solForToken(RaydiumAMMV4, []byte{0x09}, 1)
	params.SOLIn = false
	params.InMint = "USDC111111111111111111111111111111111111111"
	params.InDecimals = 6
	params.AmountIn = 1_500_000_000 // 1500 USDC
	tx := stub.SwapTx(params)

	cls := c.Classify(tx)
	assert.InDelta(t, 1500.0, cls.NotionalSize, 1e-9)
}

func TestClassifier_Idempotent(t *testing.T) {
	c := NewClassifier(nil)
	tx := stub.SwapTx(solForToken(PumpFun, mustHex(t, "66063d1201daebea"), 3))

	first := c.Classify(tx)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Classify(tx))
	}
}

func TestRegistry_Defaults(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, 9, reg.Len())
	for _, id := range []string{RaydiumAMMV4, PumpFun, JupiterV6, OrcaWhirlpool} {
		_, ok := reg.Lookup(id)
		assert.True(t, ok, id)
	}

	// Re-registering a known id by bare name does not drop its layouts.
	reg.RegisterProgramID("raydium", RaydiumAMMV4)
	p, _ := reg.Lookup(RaydiumAMMV4)
	assert.NotEmpty(t, p.Layouts)
}
