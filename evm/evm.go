// Package evm derives Ethereum-style account addresses from secp256k1
// private keys.
package evm

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// ErrInvalidSecret is returned for keys that are not 32 bytes of hex or that
// are outside the curve order.
var ErrInvalidSecret = errors.New("invalid secp256k1 private key")

// Deriver turns a hex encoded private key into an address.
type Deriver interface {
	Address(secret string) (string, error)
}

// Secp256k1 derives the last 20 bytes of the Keccak-256 hash of the
// uncompressed public key.
type Secp256k1 struct{}

// NormalizeSecret strips an optional 0x prefix and lowercases the key. The
// result must be exactly 64 hex characters.
func NormalizeSecret(secret string) (string, error) {
	s := strings.TrimSpace(secret)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 64 {
		return "", fmt.Errorf("%w: want 64 hex characters, got %d", ErrInvalidSecret, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return strings.ToLower(s), nil
}

// Address returns the lowercase hex address without 0x prefix.
func (Secp256k1) Address(secret string) (string, error) {
	normalized, err := NormalizeSecret(secret)
	if err != nil {
		return "", err
	}
	raw, _ := hex.DecodeString(normalized)

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return "", fmt.Errorf("%w: out of range", ErrInvalidSecret)
	}
	key := secp256k1.NewPrivateKey(&scalar)
	pub := key.PubKey().SerializeUncompressed()

	hash := sha3.NewLegacyKeccak256()
	hash.Write(pub[1:])
	sum := hash.Sum(nil)
	return hex.EncodeToString(sum[12:]), nil
}
