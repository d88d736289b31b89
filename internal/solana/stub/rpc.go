// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solana-token-trader/internal/solana"
)

// ErrNotFound is returned when an account is unknown.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Balances      map[string]uint64
	TokenAccounts map[string][]solana.TokenAccount // keyed by owner
	Statuses      map[string]*solana.SignatureStatus
	Sent          []string // submitted transactions
	Slot          int64

	// SendErr fails every SendTransaction call when set.
	SendErr error
	// AutoConfirm marks submitted transactions as finalized.
	AutoConfirm bool
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:      make(map[string]uint64),
		TokenAccounts: make(map[string][]solana.TokenAccount),
		Statuses:      make(map[string]*solana.SignatureStatus),
		AutoConfirm:   true,
	}
}

// GetBalance returns the stored balance.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.Balances[pubkey]
	if !ok {
		return 0, ErrNotFound
	}
	return b, nil
}

// GetTokenAccountsByOwner returns stored accounts, filtered by mint when given.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, mint string) ([]solana.TokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []solana.TokenAccount
	for _, a := range c.TokenAccounts[owner] {
		if mint == "" || a.Mint == mint {
			out = append(out, a)
		}
	}
	return out, nil
}

// SendTransaction records the transaction and returns a synthetic signature.
func (c *RPCClient) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, txBase64)
	sig := fmt.Sprintf("stub-sig-%d", len(c.Sent))
	if c.AutoConfirm {
		c.Statuses[sig] = &solana.SignatureStatus{Slot: c.Slot, ConfirmationStatus: solana.CommitmentFinalized}
	}
	return sig, nil
}

// GetSignatureStatuses returns stored statuses.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, s := range signatures {
		out[i] = c.Statuses[s]
	}
	return out, nil
}

// GetSlot returns the stored slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Slot, nil
}
