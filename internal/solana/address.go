package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeySize is the length of a Solana public key in bytes.
const PublicKeySize = 32

// ErrInvalidAddress is returned for strings that are not base58 32-byte keys.
var ErrInvalidAddress = errors.New("invalid solana address")

// PublicKey is a decoded Solana address.
type PublicKey [PublicKeySize]byte

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	if s == "" {
		return pk, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("%w: %d bytes", ErrInvalidAddress, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the base58 form.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// IsOnCurve reports whether the key is a valid Ed25519 point.
// Program-derived addresses are deliberately off the curve.
func (pk PublicKey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}

// ValidateAddress checks that s decodes to a 32-byte key.
func ValidateAddress(s string) error {
	_, err := ParsePublicKey(s)
	return err
}

// IsOnCurve reports whether address decodes to a valid Ed25519 point.
func IsOnCurve(address string) bool {
	pk, err := ParsePublicKey(address)
	if err != nil {
		return false
	}
	return pk.IsOnCurve()
}
