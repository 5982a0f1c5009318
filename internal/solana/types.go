package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// Well-known program and mint addresses.
const (
	// SystemProgram owns native SOL accounts.
	SystemProgram = "11111111111111111111111111111111"
	// TokenProgram is the SPL token program.
	TokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	// Token2022Program is the SPL token-2022 program.
	Token2022Program = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	// ComputeBudgetProgram sets compute limits and priority fees.
	ComputeBudgetProgram = "ComputeBudget111111111111111111111111111111"
	// WSOL is the Wrapped SOL mint address.
	WSOL = "So11111111111111111111111111111111111111112"
)

// LamportsPerSOL converts lamports to SOL.
const LamportsPerSOL = 1_000_000_000
