package safety

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"solana-token-trader/internal/domain"
)

// Simulated derives a deterministic report from the SHA-256 of the address.
// Every report is tagged Simulated so downstream consumers can tell it apart.
type Simulated struct {
	now func() time.Time
}

// NewSimulated creates a simulated provider. now may be nil.
func NewSimulated(now func() time.Time) *Simulated {
	if now == nil {
		now = time.Now
	}
	return &Simulated{now: now}
}

// Name returns "simulated".
func (s *Simulated) Name() string {
	return ProviderSimulated
}

// Check never fails.
func (s *Simulated) Check(_ context.Context, address string) (*domain.SafetyReport, error) {
	sum := sha256.Sum256([]byte(address))
	word := func(i int) uint64 { return uint64(binary.BigEndian.Uint16(sum[i*2 : i*2+2])) }

	first := 0.05 + float64(word(1)%150)/1000 // 5% to 19.9%
	second := 0.02 + float64(word(2)%80)/1000 // 2% to 9.9%
	ageHours := 6 + word(6)%714               // 6h to 30d

	return &domain.SafetyReport{
		TokenAddress:       address,
		Status:             "caution",
		RiskScore:          40 + int(word(0)%31), // 40..70
		TopHolderPcts:      []float64{first, second},
		HoldersCount:       25 + int(word(3)%500),
		LockedLiquidityUSD: float64(1000 + word(4)%9000),
		IsHoneypot:         false,
		ContractVerified:   word(5)%2 == 0,
		MaxTax:             float64(word(7) % 11),
		CreatedAt:          s.now().Add(-time.Duration(ageHours) * time.Hour).UTC(),
		Source:             ProviderSimulated,
		Simulated:          true,
	}, nil
}

var _ Provider = (*Simulated)(nil)
