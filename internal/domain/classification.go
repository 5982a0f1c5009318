package domain

// Classification is the classifier's view of a single transaction.
type Classification struct {
	IsSwap       bool
	Program      string  // registry name of the matched DEX, empty when not a swap
	ProgramID    string  // matched program id
	PoolID       *string // nil when the pool could not be decoded
	NotionalSize float64 // input leg in UI units (SOL or token), 0 when unknown
}

// HasPool reports whether a pool address was decoded.
func (c Classification) HasPool() bool {
	return c.PoolID != nil && *c.PoolID != ""
}
