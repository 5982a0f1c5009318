package impact

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandwich-guard/internal/discovery"
	"sandwich-guard/internal/solana"
	"sandwich-guard/internal/solana/stub"
)

const pool = "Pool111111111111111111111111111111111111111"

const (
	usdcMint = "USDCMint111111111111111111111111111111111111"
	bonkMint = "BonkMint111111111111111111111111111111111111"
)

// cpOut is the x*y=k output for amountIn without fees.
func cpOut(reserveIn, reserveOut, amountIn uint64) uint64 {
	out := new(big.Int).Mul(new(big.Int).SetUint64(reserveOut), new(big.Int).SetUint64(amountIn))
	out.Quo(out, new(big.Int).SetUint64(reserveIn+amountIn))
	return out.Uint64()
}

// constantProduct returns swap params where amountOut follows x*y=k without fees.
func constantProduct(reserveIn, reserveOut, amountIn uint64) stub.SwapParams {
	return stub.SwapParams{
		Signature:   "sig-cp",
		BlockTime:   1700000000,
		ProgramID:   discovery.RaydiumAMMV4,
		Data:        []byte{0x09},
		PoolIndex:   1,
		Pool:        pool,
		InMint:      solana.WSOL,
		OutMint:     "TokenMint1111111111111111111111111111111111",
		InDecimals:  9,
		OutDecimals: 6,
		AmountIn:    amountIn,
		AmountOut:   cpOut(reserveIn, reserveOut, amountIn),
		ReserveIn:   reserveIn,
		ReserveOut:  reserveOut,
		SOLIn:       true,
	}
}

// raydiumHop returns a Raydium v4 route hop priced by x*y=k.
func raydiumHop(poolID, vaultIn, vaultOut, inMint, outMint string, reserveIn, reserveOut, amountIn uint64) stub.Hop {
	return stub.Hop{
		ProgramID:  discovery.RaydiumAMMV4,
		Data:       []byte{0x09},
		PoolIndex:  1,
		Pool:       poolID,
		VaultIn:    vaultIn,
		VaultOut:   vaultOut,
		InMint:     inMint,
		OutMint:    outMint,
		AmountIn:   amountIn,
		AmountOut:  cpOut(reserveIn, reserveOut, amountIn),
		ReserveIn:  reserveIn,
		ReserveOut: reserveOut,
	}
}

func newEstimator() *Estimator {
	return NewEstimator(discovery.NewClassifier(nil))
}

func TestEstimate_ConstantProduct(t *testing.T) {
	tests := []struct {
		name     string
		amountIn uint64
		want     float64 // dx/x*100
	}{
		{"1% of reserve", 1 * solana.LamportsPerSOL, 1.0},
		{"2% of reserve", 2 * solana.LamportsPerSOL, 2.0},
		{"10% of reserve", 10 * solana.LamportsPerSOL, 10.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := stub.SwapTx(constantProduct(100*solana.LamportsPerSOL, 50_000_000_000, tt.amountIn))

			got, err := newEstimator().Estimate(tx, pool)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestEstimate_ThinPoolExceedsWarning(t *testing.T) {
	// A 5% swap into a thin pool crosses a 3% warning threshold.
	tx := stub.SwapTx(constantProduct(20*solana.LamportsPerSOL, 1_000_000_000, 1*solana.LamportsPerSOL))

	got, err := newEstimator().Estimate(tx, pool)
	require.NoError(t, err)
	assert.Greater(t, got, 3.0)
}

func TestEstimate_ClampsFavourableExecution(t *testing.T) {
	p := constantProduct(100, 100, 1)
	p.AmountOut = 2

	got, err := newEstimator().Estimate(stub.SwapTx(p), pool)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestEstimate_InnerInstruction(t *testing.T) {
	p := constantProduct(100*solana.LamportsPerSOL, 50_000_000_000, 2*solana.LamportsPerSOL)
	p.Inner = discovery.JupiterV6

	got, err := newEstimator().Estimate(stub.SwapTx(p), pool)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 0.001)
}

func TestEstimate_NativeSOLReserve(t *testing.T) {
	p := constantProduct(30*solana.LamportsPerSOL, 800_000_000_000_000, 3*solana.LamportsPerSOL/10)
	tx := stub.SwapTx(p)

	// Bonding curve: the SOL side is the pool account's lamports, not a vault.
	tx.Meta.PreTokenBalances = withoutIndex(tx.Meta.PreTokenBalances, stub.IdxVaultIn)
	tx.Meta.PostTokenBalances = withoutIndex(tx.Meta.PostTokenBalances, stub.IdxVaultIn)
	tx.Meta.PreBalances[stub.IdxPool] = p.ReserveIn
	tx.Meta.PostBalances[stub.IdxPool] = p.ReserveIn + p.AmountIn

	swap, err := newEstimator().Decode(tx, pool)
	require.NoError(t, err)
	assert.Equal(t, pool, swap.In.Account)
	assert.Empty(t, swap.In.Mint)

	got, err := newEstimator().Estimate(tx, pool)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 0.001)
}

func TestEstimate_PayerAccountsIgnored(t *testing.T) {
	p := constantProduct(100*solana.LamportsPerSOL, 50_000_000_000, 2*solana.LamportsPerSOL)
	swap, err := newEstimator().Decode(stub.SwapTx(p), pool)
	require.NoError(t, err)

	assert.Equal(t, "VaultIn111111111111111111111111111111111111", swap.In.Account)
	assert.Equal(t, "VaultOut11111111111111111111111111111111111", swap.Out.Account)
}

func TestEstimate_DecodeFailure(t *testing.T) {
	good := constantProduct(100*solana.LamportsPerSOL, 50_000_000_000, 2*solana.LamportsPerSOL)

	emptyReserve := good
	emptyReserve.ReserveIn = 0

	unregistered := good
	unregistered.ProgramID = "Unknown111111111111111111111111111111111111"

	sameMint := good
	sameMint.OutMint = solana.WSOL

	route := stub.RouteTx("sig-route", 1700000000, discovery.JupiterV6, []stub.Hop{
		raydiumHop("PoolA111111111111111111111111111111111111111", "VaultA1", "VaultA2", solana.WSOL, usdcMint, 100*solana.LamportsPerSOL, 10_000_000_000, solana.LamportsPerSOL),
	})

	tests := []struct {
		name   string
		tx     *solana.Transaction
		poolID string
	}{
		{"nil transaction", nil, pool},
		{"empty pool id", stub.SwapTx(good), ""},
		{"pool not referenced", stub.SwapTx(good), "Other11111111111111111111111111111111111111"},
		{"zero reserve", stub.SwapTx(emptyReserve), pool},
		{"no balance changes", stub.TransferTx("sig", 1), "Dest1111111111111111111111111111111111111111"},
		{"same mint on both legs", stub.SwapTx(sameMint), pool},
		{"account listed only by the aggregator route", route, "VaultA1"},
		{"unregistered program", stub.SwapTx(unregistered), pool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newEstimator().Estimate(tt.tx, tt.poolID)
			assert.ErrorIs(t, err, ErrDecodeFailure)
		})
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	tx := stub.SwapTx(constantProduct(100*solana.LamportsPerSOL, 50_000_000_000, 7*solana.LamportsPerSOL))

	first, err := newEstimator().Estimate(tx, pool)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		got, err := newEstimator().Estimate(tx, pool)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestEstimate_TwoHopRouteUsesPoolLocalLegs(t *testing.T) {
	const (
		poolSOL  = "PoolSOLUSDC11111111111111111111111111111111"
		poolBONK = "PoolUSDCBONK1111111111111111111111111111111"
	)
	hop1 := raydiumHop(poolSOL, "VaultSOL1", "VaultUSDC1", solana.WSOL, usdcMint,
		100*solana.LamportsPerSOL, 10_000_000_000, solana.LamportsPerSOL)
	hop2 := raydiumHop(poolBONK, "VaultUSDC2", "VaultBONK2", usdcMint, bonkMint,
		50_000_000_000, 1_000_000_000_000_000, hop1.AmountOut)
	tx := stub.RouteTx("sig-route", 1700000000, discovery.JupiterV6, []stub.Hop{hop1, hop2})

	est := newEstimator()

	swap, err := est.Decode(tx, poolSOL)
	require.NoError(t, err)
	assert.Equal(t, "VaultSOL1", swap.In.Account)
	assert.Equal(t, "VaultUSDC1", swap.Out.Account)

	got, err := est.Estimate(tx, poolSOL)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 0.001)

	// Same as the hop traded on its own.
	single := constantProduct(hop1.ReserveIn, hop1.ReserveOut, hop1.AmountIn)
	single.OutMint = usdcMint
	alone, err := est.Estimate(stub.SwapTx(single), pool)
	require.NoError(t, err)
	assert.InDelta(t, alone, got, 1e-9)

	swap, err = est.Decode(tx, poolBONK)
	require.NoError(t, err)
	assert.Equal(t, "VaultUSDC2", swap.In.Account)
	assert.Equal(t, "VaultBONK2", swap.Out.Account)

	got, err = est.Estimate(tx, poolBONK)
	require.NoError(t, err)
	assert.InDelta(t, float64(hop2.AmountIn)/float64(hop2.ReserveIn)*100, got, 0.001)
}

func TestNewEstimator_DefaultLocator(t *testing.T) {
	tx := stub.SwapTx(constantProduct(100*solana.LamportsPerSOL, 50_000_000_000, 2*solana.LamportsPerSOL))

	got, err := NewEstimator(nil).Estimate(tx, pool)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 0.001)
}

func withoutIndex(in []solana.TokenBalance, idx int) []solana.TokenBalance {
	out := in[:0:0]
	for _, b := range in {
		if b.AccountIndex != idx {
			out = append(out, b)
		}
	}
	return out
}
