package execution

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-token-trader/internal/solana"
)

// Signer signs serialized transactions.
type Signer interface {
	PublicKey() string
	SignTransaction(txBase64 string) (string, error)
}

// ErrInvalidKey is returned for malformed wallet keys.
var ErrInvalidKey = errors.New("invalid wallet key")

// ErrMalformedTransaction is returned when a transaction cannot be parsed for signing.
var ErrMalformedTransaction = errors.New("malformed transaction")

// KeypairSigner signs with an in-memory Ed25519 keypair.
type KeypairSigner struct {
	key    ed25519.PrivateKey
	pubkey solana.PublicKey
}

// NewKeypairSigner parses a base58-encoded 64-byte secret key (seed followed by public key).
func NewKeypairSigner(secret string) (*KeypairSigner, error) {
	b, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, ed25519.PrivateKeySize, len(b))
	}
	var supplied solana.PublicKey
	copy(supplied[:], b[ed25519.SeedSize:])
	if !supplied.IsOnCurve() {
		return nil, fmt.Errorf("%w: public key is off the ed25519 curve", ErrInvalidKey)
	}
	derived := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], b[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidKey)
	}
	s := &KeypairSigner{key: derived}
	copy(s.pubkey[:], derived[ed25519.SeedSize:])
	return s, nil
}

// PublicKey returns the base58 wallet address.
func (s *KeypairSigner) PublicKey() string {
	return s.pubkey.String()
}

// SignTransaction places the wallet signature into its slot of a legacy or
// versioned transaction and returns the re-encoded transaction.
func (s *KeypairSigner) SignTransaction(txBase64 string) (string, error) {
	tx, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}

	numSigs, n, err := decodeCompactU16(tx)
	if err != nil {
		return "", err
	}
	sigStart := n
	msgStart := sigStart + numSigs*ed25519.SignatureSize
	if msgStart >= len(tx) {
		return "", fmt.Errorf("%w: truncated signatures", ErrMalformedTransaction)
	}
	message := tx[msgStart:]

	idx, err := signerIndex(message, s.pubkey)
	if err != nil {
		return "", err
	}
	if idx >= numSigs {
		return "", fmt.Errorf("%w: signer slot %d of %d", ErrMalformedTransaction, idx, numSigs)
	}

	sig := ed25519.Sign(s.key, message)
	copy(tx[sigStart+idx*ed25519.SignatureSize:], sig)
	return base64.StdEncoding.EncodeToString(tx), nil
}

// signerIndex returns the position of pubkey among the message's required signers.
func signerIndex(message []byte, pubkey solana.PublicKey) (int, error) {
	off := 0
	if len(message) > 0 && message[0]&0x80 != 0 {
		off = 1 // version prefix
	}
	if len(message) < off+3 {
		return 0, fmt.Errorf("%w: truncated header", ErrMalformedTransaction)
	}
	required := int(message[off])
	off += 3

	numKeys, n, err := decodeCompactU16(message[off:])
	if err != nil {
		return 0, err
	}
	off += n
	if len(message) < off+numKeys*solana.PublicKeySize {
		return 0, fmt.Errorf("%w: truncated account keys", ErrMalformedTransaction)
	}
	for i := 0; i < required && i < numKeys; i++ {
		k := message[off+i*solana.PublicKeySize : off+(i+1)*solana.PublicKeySize]
		if bytes.Equal(k, pubkey[:]) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: wallet is not a required signer", ErrMalformedTransaction)
}

func decodeCompactU16(b []byte) (value, size int, err error) {
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("%w: truncated length", ErrMalformedTransaction)
		}
		value |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: length overflow", ErrMalformedTransaction)
}
