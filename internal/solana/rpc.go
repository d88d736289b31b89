package solana

import (
	"context"

	"github.com/shopspring/decimal"
)

// RPCClient defines the Solana RPC calls the trader depends on.
type RPCClient interface {
	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenAccountsByOwner returns SPL token accounts of owner, optionally filtered by mint.
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error)

	// SendTransaction submits a base64-encoded signed transaction and returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses returns one status per signature; nil for unknown signatures.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetSlot returns the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

// Well-known program IDs.
const (
	TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
)

// Commitment levels.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// TokenAccount is an SPL token balance held by an owner.
type TokenAccount struct {
	Address  string  // token account address
	Mint     string  // token mint
	Amount   uint64  // raw amount in base units
	Decimals int     // mint decimals
	UIAmount float64 // Amount scaled by decimals
}

// SignatureStatus is the confirmation state of a submitted transaction.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int        // nil once rooted
	Err                interface{} // transaction error, nil on success
	ConfirmationStatus string      // processed | confirmed | finalized
}

// Confirmed reports whether the transaction reached at least the confirmed commitment.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil {
		return false
	}
	return s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized
}

// LamportsToSOL converts lamports to SOL without float rounding.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports)).Shift(-9)
}

// SOLToLamports converts SOL to lamports, truncating sub-lamport amounts.
func SOLToLamports(sol decimal.Decimal) uint64 {
	if sol.IsNegative() {
		return 0
	}
	return uint64(sol.Shift(9).IntPart())
}
