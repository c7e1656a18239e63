package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the amount of randomness in a reset or verification token.
const TokenBytes = 32

// GenerateToken returns a random hex token and the SHA-256 digest to store.
// Only the digest is ever persisted; the plaintext goes to the account owner.
func GenerateToken() (plaintext, digest string, err error) {
	buf := make([]byte, TokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").Wrap(err)
	}

	plaintext = hex.EncodeToString(buf)
	return plaintext, DigestOf(plaintext), nil
}

// DigestOf is deterministic so a presented token can be looked up by digest.
func DigestOf(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// MatchDigest compares a plaintext against a stored digest in constant time.
func MatchDigest(plaintext, digest string) bool {
	if plaintext == "" || digest == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(DigestOf(plaintext)), []byte(digest)) == 1
}
