package solana

import (
	"errors"
	"testing"

	"github.com/mr-tron/base58"
)

func TestParsePublicKey(t *testing.T) {
	// System program: 32 zero bytes
	key, err := ParsePublicKey("11111111111111111111111111111111")
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	for i, b := range key {
		if b != 0 {
			t.Fatalf("byte %d: expected 0, got %d", i, b)
		}
	}
}

func TestParsePublicKey_Invalid(t *testing.T) {
	tests := []string{
		"",
		"not-base58-0OIl",
		"abc",
		base58.Encode(make([]byte, 31)),
	}
	for _, in := range tests {
		if _, err := ParsePublicKey(in); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("ParsePublicKey(%q): expected ErrInvalidAddress, got %v", in, err)
		}
	}
}

func TestClassifyAddress(t *testing.T) {
	// The ed25519 base point is on the curve.
	basepoint := make([]byte, 32)
	basepoint[0] = 0x58
	for i := 1; i < 32; i++ {
		basepoint[i] = 0x66
	}
	kind, err := ClassifyAddress(base58.Encode(basepoint))
	if err != nil {
		t.Fatalf("ClassifyAddress: %v", err)
	}
	if kind != AddressWallet {
		t.Errorf("expected wallet, got %s", kind)
	}

	// y = 2 has no valid x on edwards25519.
	offCurve := make([]byte, 32)
	offCurve[0] = 2
	kind, err = ClassifyAddress(base58.Encode(offCurve))
	if err != nil {
		t.Fatalf("ClassifyAddress: %v", err)
	}
	if kind != AddressProgramDerived {
		t.Errorf("expected program_derived, got %s", kind)
	}
}
