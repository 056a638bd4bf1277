package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

const resetTokenBytes = 32

// ResetToken is a freshly generated password-reset token.
// Only Hash is persisted; Raw is delivered to the user once.
type ResetToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

// GenerateResetToken creates a 256-bit random token that expires after ttl.
func GenerateResetToken(ttl time.Duration) (ResetToken, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, fmt.Errorf("generate reset token: %w", err)
	}
	raw := hex.EncodeToString(buf)
	return ResetToken{
		Raw:       raw,
		Hash:      HashResetToken(raw),
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

// HashResetToken returns the hex sha256 digest of a raw token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// VerifyResetToken compares the hash of raw against storedHash in constant time.
func VerifyResetToken(storedHash, raw string) bool {
	if storedHash == "" || raw == "" {
		return false
	}
	candidate := HashResetToken(raw)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(candidate)) == 1
}
