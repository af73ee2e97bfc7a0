package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeySize is the length of a decoded Solana public key.
const PublicKeySize = 32

// AddressKind tells whether an address can sign for itself.
type AddressKind string

const (
	// AddressWallet is an on-curve key backed by a private key.
	AddressWallet AddressKind = "wallet"
	// AddressProgramDerived is an off-curve key (PDA, pool vault, etc.).
	AddressProgramDerived AddressKind = "program_derived"
)

// ParsePublicKey decodes a base58 address into its 32 raw bytes.
func ParsePublicKey(address string) ([PublicKeySize]byte, error) {
	var key [PublicKeySize]byte
	raw, err := base58.Decode(address)
	if err != nil {
		return key, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, address, err)
	}
	if len(raw) != PublicKeySize {
		return key, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, address, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// ClassifyAddress validates address and reports its kind.
func ClassifyAddress(address string) (AddressKind, error) {
	key, err := ParsePublicKey(address)
	if err != nil {
		return "", err
	}
	if isOnCurve(key[:]) {
		return AddressWallet, nil
	}
	return AddressProgramDerived, nil
}

func isOnCurve(point []byte) bool {
	if len(point) != PublicKeySize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
