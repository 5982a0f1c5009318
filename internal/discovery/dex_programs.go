package discovery

import (
	"bytes"
	"encoding/hex"
	"sort"
)

// Known DEX program IDs.
const (
	// RaydiumAMMV4 is the Raydium AMM v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// RaydiumCPMM is the Raydium constant-product (CP-Swap) program ID.
	RaydiumCPMM = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"
	// RaydiumCLMM is the Raydium concentrated liquidity program ID.
	RaydiumCLMM = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	// OrcaWhirlpool is the Orca Whirlpool program ID.
	OrcaWhirlpool = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	// OrcaLegacy is the Orca legacy constant-product swap program ID.
	OrcaLegacy = "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"
	// MeteoraDLMM is the Meteora DLMM program ID.
	MeteoraDLMM = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"
	// PumpFun is the pump.fun program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	// PumpAMM is the pump.fun AMM program ID for migrated tokens.
	PumpAMM = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"
	// JupiterV6 is the Jupiter v6 aggregator program ID.
	JupiterV6 = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
)

// NoPool marks programs (aggregators, user-registered ids) whose instructions
// carry no pool account of their own.
const NoPool = -1

// InstructionLayout locates the pool account in one swap instruction variant.
type InstructionLayout struct {
	Name          string
	Discriminator []byte // data prefix; empty matches any instruction
	PoolIndex     int    // position of the pool in the instruction's accounts
}

// Program describes a registered DEX program.
type Program struct {
	Name       string
	ID         string
	Aggregator bool // routes through other registered AMMs
	Layouts    []InstructionLayout
}

// poolIndexFor returns the pool account index for an instruction's data, or NoPool.
func (p *Program) poolIndexFor(data []byte) (int, bool) {
	for _, l := range p.Layouts {
		if len(l.Discriminator) == 0 || bytes.HasPrefix(data, l.Discriminator) {
			return l.PoolIndex, l.PoolIndex != NoPool
		}
	}
	return NoPool, false
}

// Registry maps program IDs to DEX descriptions.
// Populate it before use; lookups are not synchronized with Register.
type Registry struct {
	programs map[string]*Program // programID -> program
}

// NewRegistry creates a registry with the default DEX programs registered.
func NewRegistry() *Registry {
	r := &Registry{
		programs: make(map[string]*Program),
	}

	anchorSwap := disc("f8c69e91e17587c8")   // global:swap
	anchorSwapV2 := disc("2b04ed0b1ac91e62") // global:swap_v2
	pumpBuy := disc("66063d1201daebea")      // global:buy
	pumpSell := disc("33e685a4017f83ad")     // global:sell

	// Raydium AMM v4 account layout for swapBaseIn/swapBaseOut:
	// 0: Token program
	// 1: AMM ID (pool)
	// 2: AMM authority
	// 3: AMM open orders
	// ...
	r.Register(Program{Name: "raydium_amm_v4", ID: RaydiumAMMV4, Layouts: []InstructionLayout{
		{Name: "swap_base_in", Discriminator: []byte{0x09}, PoolIndex: 1},
		{Name: "swap_base_out", Discriminator: []byte{0x0b}, PoolIndex: 1},
	}})
	// payer, authority, amm_config, pool_state, ...
	r.Register(Program{Name: "raydium_cpmm", ID: RaydiumCPMM, Layouts: []InstructionLayout{
		{Name: "swap_base_input", Discriminator: disc("8fbe5adac41e33de"), PoolIndex: 3},
		{Name: "swap_base_output", Discriminator: disc("37d96256a34ab4ad"), PoolIndex: 3},
	}})
	// payer, amm_config, pool_state, ...
	r.Register(Program{Name: "raydium_clmm", ID: RaydiumCLMM, Layouts: []InstructionLayout{
		{Name: "swap", Discriminator: anchorSwap, PoolIndex: 2},
		{Name: "swap_v2", Discriminator: anchorSwapV2, PoolIndex: 2},
	}})
	// swap: token_program, token_authority, whirlpool, ...
	// swap_v2: token_program_a, token_program_b, memo_program, token_authority, whirlpool, ...
	r.Register(Program{Name: "orca_whirlpool", ID: OrcaWhirlpool, Layouts: []InstructionLayout{
		{Name: "swap", Discriminator: anchorSwap, PoolIndex: 2},
		{Name: "swap_v2", Discriminator: anchorSwapV2, PoolIndex: 4},
	}})
	// token-swap instruction tag 1: swap, authority, user_transfer_authority, ...
	r.Register(Program{Name: "orca_legacy", ID: OrcaLegacy, Layouts: []InstructionLayout{
		{Name: "swap", Discriminator: []byte{0x01}, PoolIndex: 0},
	}})
	// lb_pair, bin_array_bitmap_extension, reserve_x, reserve_y, ...
	r.Register(Program{Name: "meteora_dlmm", ID: MeteoraDLMM, Layouts: []InstructionLayout{
		{Name: "swap", Discriminator: anchorSwap, PoolIndex: 0},
	}})
	// global, fee_recipient, mint, bonding_curve, ...
	r.Register(Program{Name: "pumpfun", ID: PumpFun, Layouts: []InstructionLayout{
		{Name: "buy", Discriminator: pumpBuy, PoolIndex: 3},
		{Name: "sell", Discriminator: pumpSell, PoolIndex: 3},
	}})
	// pool, user, global_config, ...
	r.Register(Program{Name: "pump_amm", ID: PumpAMM, Layouts: []InstructionLayout{
		{Name: "buy", Discriminator: pumpBuy, PoolIndex: 0},
		{Name: "sell", Discriminator: pumpSell, PoolIndex: 0},
	}})
	r.Register(Program{Name: "jupiter_v6", ID: JupiterV6, Aggregator: true})

	return r
}

// Register adds or replaces a program.
func (r *Registry) Register(p Program) {
	prog := p
	r.programs[p.ID] = &prog
}

// RegisterProgramID registers a bare program id. Swaps through it are
// detected but the pool is never decoded.
func (r *Registry) RegisterProgramID(name, programID string) {
	if _, ok := r.programs[programID]; ok {
		return
	}
	r.Register(Program{Name: name, ID: programID})
}

// Lookup returns the program registered under id.
func (r *Registry) Lookup(id string) (*Program, bool) {
	p, ok := r.programs[id]
	return p, ok
}

// ProgramIDs returns all registered program IDs in sorted order.
func (r *Registry) ProgramIDs() []string {
	ids := make([]string, 0, len(r.programs))
	for id := range r.programs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered programs.
func (r *Registry) Len() int {
	return len(r.programs)
}

func disc(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("invalid discriminator " + s)
	}
	return b
}
