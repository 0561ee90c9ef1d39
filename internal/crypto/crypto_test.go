package crypto

import (
	"encoding/hex"
	"testing"
)

func TestRandomHex(t *testing.T) {
	tok, err := RandomHex(32)
	if err != nil {
		t.Fatalf("RandomHex: %v", err)
	}
	if len(tok) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(tok))
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Errorf("token is not hex: %v", err)
	}
}

func TestRandomHexUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tok, err := RandomHex(16)
		if err != nil {
			t.Fatalf("RandomHex: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %s", tok)
		}
		seen[tok] = true
	}
}

func TestRandomHexInvalidLength(t *testing.T) {
	if _, err := RandomHex(0); err == nil {
		t.Error("expected error for zero length")
	}
}

func TestHMACSHA256Hex(t *testing.T) {
	// RFC 4231 test case 2.
	got := HMACSHA256Hex("Jefe", "what do ya want for nothing?")
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestHMACSHA256HexKeyed(t *testing.T) {
	a := HMACSHA256Hex("secret-a", "token")
	b := HMACSHA256Hex("secret-b", "token")
	if a == b {
		t.Error("different secrets should produce different digests")
	}
	if a != HMACSHA256Hex("secret-a", "token") {
		t.Error("digest should be deterministic")
	}
}

func TestHMACSHA1Base64(t *testing.T) {
	// RFC 2202 test case 2, base64 of effcdf6ae5eb2fa2d27416d5f184df9c259a7c79.
	got := HMACSHA1Base64("Jefe", "what do ya want for nothing?")
	want := "7/zfauXrL6LSdBbV8YTfnCWafHk="
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestEqual(t *testing.T) {
	if !Equal("abc", "abc") {
		t.Error("equal strings should compare equal")
	}
	if Equal("abc", "abd") {
		t.Error("different strings should not compare equal")
	}
}
