// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"errors"
	"sync"

	"github.com/SprengerV/volume-analyzer/internal/solana"
)

// ErrNotFound is returned when a transaction is not registered and
// MissingAsNil is false.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing. Safe for concurrent use.
type RPCClient struct {
	mu           sync.Mutex
	transactions map[string]*solana.Transaction
	signatures   map[string][]solana.SignatureInfo
	txErrors     map[string]error
	sigErr       error
	slot         int64
	fetched      []string
	sigCalls     int

	// MissingAsNil makes unknown signatures return nil, nil like a real node.
	MissingAsNil bool
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		transactions: make(map[string]*solana.Transaction),
		signatures:   make(map[string][]solana.SignatureInfo),
		txErrors:     make(map[string]error),
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetched = append(c.fetched, signature)
	if err, ok := c.txErrors[signature]; ok {
		return nil, err
	}
	tx, ok := c.transactions[signature]
	if !ok {
		if c.MissingAsNil {
			return nil, nil
		}
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetSignaturesForAddress returns the registered signatures, newest first,
// honoring Before, Until and Limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sigCalls++
	if c.sigErr != nil {
		return nil, c.sigErr
	}

	sigs := c.signatures[address]
	if opts != nil && opts.Before != "" {
		for i, s := range sigs {
			if s.Signature == opts.Before {
				sigs = sigs[i+1:]
				break
			}
		}
	}
	if opts != nil && opts.Until != "" {
		for i, s := range sigs {
			if s.Signature == opts.Until {
				sigs = sigs[:i]
				break
			}
		}
	}
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}

	out := make([]solana.SignatureInfo, len(sigs))
	copy(out, sigs)
	return out, nil
}

// GetSlot returns the slot set with SetSlot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sigErr != nil {
		return 0, c.sigErr
	}
	return c.slot, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Signature] = tx
}

// SetSignatures replaces the newest-first signature list of an address.
func (c *RPCClient) SetSignatures(address string, signatures ...string) {
	sigs := make([]solana.SignatureInfo, len(signatures))
	for i, s := range signatures {
		sigs[i] = solana.SignatureInfo{Signature: s}
	}
	c.AddSignatures(address, sigs)
}

// AddSignatures sets signatures for an address.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signatures[address] = sigs
}

// FailTransaction makes GetTransaction return err for signature.
func (c *RPCClient) FailTransaction(signature string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txErrors[signature] = err
}

// ClearFailure removes an error set with FailTransaction.
func (c *RPCClient) ClearFailure(signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.txErrors, signature)
}

// FailSignatures makes GetSignaturesForAddress and GetSlot return err.
// A nil err clears the failure.
func (c *RPCClient) FailSignatures(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sigErr = err
}

// SetSlot sets the value returned by GetSlot.
func (c *RPCClient) SetSlot(slot int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot = slot
}

// Fetched returns the signatures passed to GetTransaction, in call order.
func (c *RPCClient) Fetched() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.fetched))
	copy(out, c.fetched)
	return out
}

// SignatureCalls returns how many times GetSignaturesForAddress was called.
func (c *RPCClient) SignatureCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sigCalls
}

// ResetFetched clears the GetTransaction call log.
func (c *RPCClient) ResetFetched() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched = nil
}

var _ solana.RPCClient = (*RPCClient)(nil)
