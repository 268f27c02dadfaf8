package escrowsim

import (
	"strings"
	"testing"
)

func TestNewContractAddress(t *testing.T) {
	a, err := NewContractAddress()
	if err != nil {
		t.Fatalf("contract address: %v", err)
	}
	if !strings.HasPrefix(a, "0x") || len(a) != 42 {
		t.Fatalf("unexpected address format: %q", a)
	}
	b, err := NewContractAddress()
	if err != nil {
		t.Fatalf("contract address: %v", err)
	}
	if a == b {
		t.Fatalf("addresses must be unique, got %q twice", a)
	}
}

func TestNewTxHash(t *testing.T) {
	h, err := NewTxHash()
	if err != nil {
		t.Fatalf("tx hash: %v", err)
	}
	if !strings.HasPrefix(h, "0x") || len(h) != 66 {
		t.Fatalf("unexpected hash format: %q", h)
	}
	h2, err := NewTxHash()
	if err != nil {
		t.Fatalf("tx hash: %v", err)
	}
	if h == h2 {
		t.Fatalf("hashes must be unique, got %q twice", h)
	}
}
