package auth

import (
	"testing"
	"time"
)

func TestGenerateResetToken(t *testing.T) {
	before := time.Now().UTC()
	tok, err := GenerateResetToken(15 * time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(tok.Raw) != 64 {
		t.Fatalf("expected 64 hex chars (256 bits), got %d", len(tok.Raw))
	}
	if tok.Hash == tok.Raw {
		t.Fatal("hash must differ from raw token")
	}
	if tok.ExpiresAt.Before(before.Add(15*time.Minute)) || tok.ExpiresAt.After(time.Now().UTC().Add(15*time.Minute)) {
		t.Fatalf("unexpected expiry %v", tok.ExpiresAt)
	}

	other, err := GenerateResetToken(time.Minute)
	if err != nil {
		t.Fatalf("generate second: %v", err)
	}
	if other.Raw == tok.Raw {
		t.Fatal("expected distinct tokens")
	}
}

func TestVerifyResetToken(t *testing.T) {
	tok, err := GenerateResetToken(time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !VerifyResetToken(tok.Hash, tok.Raw) {
		t.Fatal("expected raw token to verify")
	}
	if VerifyResetToken(tok.Hash, tok.Raw+"0") {
		t.Fatal("expected mismatched token to fail")
	}
	if VerifyResetToken("", tok.Raw) {
		t.Fatal("expected cleared hash to fail")
	}
	if VerifyResetToken(tok.Hash, "") {
		t.Fatal("expected empty candidate to fail")
	}
}
