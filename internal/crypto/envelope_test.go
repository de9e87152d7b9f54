package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func testKey() []byte { return bytes.Repeat([]byte{0x42}, 32) }

func TestSealOpenRoundTrip(t *testing.T) {
	m, err := NewManager(testKey())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	sealed, err := m.SealString("sk-or-v1-secret")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if sealed == "sk-or-v1-secret" {
		t.Fatalf("sealed value must not equal plaintext")
	}

	opened, err := m.OpenString(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened != "sk-or-v1-secret" {
		t.Fatalf("expected round trip, got %q", opened)
	}
}

func TestSealProducesFreshNonces(t *testing.T) {
	m, err := NewManager(testKey())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	a, err := m.SealString("same")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := m.SealString("same")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if a == b {
		t.Fatalf("two seals of the same value must differ")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	m, err := NewManager(testKey())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	sealed, err := m.SealString("secret")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw[len(raw)-1] ^= 0xff
	if _, err := m.OpenString(base64.StdEncoding.EncodeToString(raw)); err == nil {
		t.Fatalf("tampered ciphertext must not open")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	m, err := NewManager(testKey())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.OpenString("not base64!!"); err == nil {
		t.Fatalf("invalid base64 must not open")
	}
	if _, err := m.OpenString(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Fatalf("truncated sealed value must not open")
	}
}

func TestNewManagerRejectsBadKeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33} {
		if _, err := NewManager(bytes.Repeat([]byte{1}, n)); err == nil {
			t.Fatalf("key length %d must be rejected", n)
		}
	}
}
