package internal

import (
	"testing"
)

func TestRefreshTokenRoundTrip(t *testing.T) {
	secret, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret: %v", err)
	}

	token := EncodeRefreshToken(secret)
	decoded, err := DecodeRefreshToken(token)
	if err != nil {
		t.Fatalf("DecodeRefreshToken: %v", err)
	}
	if decoded != secret {
		t.Fatal("round-trip secret mismatch")
	}
}

func TestDecodeRefreshTokenRejectsWrongSize(t *testing.T) {
	// Valid base64url, wrong decoded length.
	for _, token := range []string{"", "aGVsbG8", "dG9vLXNob3J0"} {
		if _, err := DecodeRefreshToken(token); err == nil {
			t.Fatalf("expected size rejection for %q", token)
		}
	}
}

func TestHashRefreshSecretIsStable(t *testing.T) {
	secret, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret: %v", err)
	}
	if HashRefreshSecret(secret) != HashRefreshSecret(secret) {
		t.Fatal("hash is not deterministic")
	}

	other, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret: %v", err)
	}
	if HashRefreshSecret(secret) == HashRefreshSecret(other) {
		t.Fatal("distinct secrets produced identical hashes")
	}
}

// FuzzDecodeRefreshToken exercises refresh token decoding with arbitrary strings.
// Goal: no panics; invalid inputs should return errors cleanly.
func FuzzDecodeRefreshToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA") // 43 chars, decodes to 32 bytes

	if secret, err := NewRefreshSecret(); err == nil {
		f.Add(EncodeRefreshToken(secret))
	}

	// Malformed base64.
	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")

	f.Fuzz(func(t *testing.T, input string) {
		// Must not panic. Errors are fine for invalid inputs.
		secret, err := DecodeRefreshToken(input)
		if err != nil {
			return
		}

		// If decode succeeded, re-encode must round-trip exactly.
		decoded, err := DecodeRefreshToken(EncodeRefreshToken(secret))
		if err != nil {
			t.Fatalf("roundtrip decode failed: %v", err)
		}
		if decoded != secret {
			t.Error("roundtrip secret mismatch")
		}
	})
}
