// Package idhash derives deterministic identifiers for positions and trades.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePositionID computes a deterministic position_id using SHA256.
// Formula: SHA256(token_address|entry_signature|entry_time_ms)
// Returns hex-encoded hash (64 characters).
func ComputePositionID(
	tokenAddress string,
	entrySignature string,
	entryTimeMs int64,
) string {
	data := fmt.Sprintf("%s|%s|%d",
		tokenAddress,
		entrySignature,
		entryTimeMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(position_id|direction|signature|executed_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	positionID string,
	direction string,
	signature string,
	executedAtMs int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		positionID,
		direction,
		signature,
		executedAtMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
