package solana

import (
	"errors"
	"testing"

	"filippo.io/edwards25519"
	"github.com/shopspring/decimal"
)

func TestParsePublicKey(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"system program", "11111111111111111111111111111111", false},
		{"token program", TokenProgramID, false},
		{"wrapped sol", WrappedSOLMint, false},
		{"empty", "", true},
		{"invalid alphabet", "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", true},
		{"too short", "abc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pk, err := ParsePublicKey(tt.address)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Errorf("expected ErrInvalidAddress, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePublicKey: %v", err)
			}
			if pk.String() != tt.address {
				t.Errorf("round trip: got %s, want %s", pk.String(), tt.address)
			}
		})
	}
}

func TestIsOnCurve(t *testing.T) {
	base := PublicKey(edwards25519.NewGeneratorPoint().Bytes())
	if !IsOnCurve(base.String()) {
		t.Error("generator point should be on curve")
	}
	if IsOnCurve("not-an-address") {
		t.Error("invalid address cannot be on curve")
	}

	// Roughly half of all y coordinates have no matching x.
	off := 0
	for i := 0; i < 16; i++ {
		var pk PublicKey
		pk[0] = byte(i + 2)
		if !pk.IsOnCurve() {
			off++
		}
	}
	if off == 0 {
		t.Error("expected some keys off the curve")
	}
}

func TestLamportConversion(t *testing.T) {
	if got := LamportsToSOL(1).String(); got != "0.000000001" {
		t.Errorf("expected 0.000000001, got %s", got)
	}
	if got := SOLToLamports(decimal.RequireFromString("0.1234567899")); got != 123456789 {
		t.Errorf("expected truncation to 123456789, got %d", got)
	}
	if got := SOLToLamports(decimal.NewFromInt(-1)); got != 0 {
		t.Errorf("expected 0 for negative amounts, got %d", got)
	}
}
