package stub

import (
	"context"
	"sync"

	"sandwich-guard/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// Signatures are stored newest first, as the real node returns them.
type RPCClient struct {
	mu           sync.Mutex
	transactions map[string]*solana.Transaction
	signatures   map[string][]solana.SignatureInfo

	// SignaturesErr and TransactionErr, when set, are returned by every call.
	SignaturesErr  error
	TransactionErr error

	signatureCalls   int
	transactionCalls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		transactions:     make(map[string]*solana.Transaction),
		signatures:       make(map[string][]solana.SignatureInfo),
		transactionCalls: make(map[string]int),
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
// It returns nil, nil for unknown signatures.
func (c *RPCClient) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transactionCalls[signature]++
	if c.TransactionErr != nil {
		return nil, c.TransactionErr
	}
	return c.transactions[signature], nil
}

// GetSignaturesForAddress returns stored signatures honoring Until, Before and Limit.
func (c *RPCClient) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.signatureCalls++
	if c.SignaturesErr != nil {
		return nil, c.SignaturesErr
	}

	sigs := c.signatures[address]
	if opts == nil {
		return append([]solana.SignatureInfo(nil), sigs...), nil
	}

	start := 0
	if opts.Before != "" {
		for i, s := range sigs {
			if s.Signature == opts.Before {
				start = i + 1
				break
			}
		}
	}

	var out []solana.SignatureInfo
	for _, s := range sigs[start:] {
		if opts.Until != "" && s.Signature == opts.Until {
			break
		}
		out = append(out, s)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Signature] = tx
}

// AddSignatures replaces the signatures for an address. Pass them newest first.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signatures[address] = sigs
}

// PushSignature prepends a new signature for an address.
func (c *RPCClient) PushSignature(address string, sig solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signatures[address] = append([]solana.SignatureInfo{sig}, c.signatures[address]...)
}

// SetSignaturesErr sets the error returned by GetSignaturesForAddress.
func (c *RPCClient) SetSignaturesErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SignaturesErr = err
}

// SetTransactionErr sets the error returned by GetTransaction.
func (c *RPCClient) SetTransactionErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TransactionErr = err
}

// SignatureCalls returns how many times GetSignaturesForAddress was called.
func (c *RPCClient) SignatureCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signatureCalls
}

// TransactionCalls returns how many times a signature was fetched.
func (c *RPCClient) TransactionCalls(signature string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transactionCalls[signature]
}
