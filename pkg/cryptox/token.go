package cryptox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Token size constants (bytes of entropy before encoding).
const (
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	// The floor for invite secrets and anything else that acts as a
	// bearer capability.
	TokenSize256 = 32
	// TokenSize512 provides 512 bits of entropy for high-value secrets.
	TokenSize512 = 64
)

// GenerateToken creates a cryptographically secure random token of the given
// byte length, returned base64url-encoded without padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustGenerateToken is like GenerateToken but panics on error. Only for
// initialization paths where failure is unrecoverable.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate token: %v", err))
	}
	return token
}

// DigestToken returns the keyed HMAC-SHA256 digest of a token, hex-encoded.
// Only the digest is ever persisted; lookup is an exact match on the digest,
// so no raw secret is compared or stored anywhere. The key is a server-wide
// secret, which means a leaked database alone cannot be used to forge
// lookups for guessed tokens.
func DigestToken(token string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
