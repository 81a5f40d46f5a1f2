// Package integrity computes and verifies the content digest that detects
// tampering or silent corruption of the stored task collection.
//
// The digest is SHA-256 over the exact serialized plaintext bytes, encoded
// as lowercase hex. It is an application-level check layered on top of the
// cipher's own authentication: the cipher catches a modified store file,
// the digest catches a plaintext that no longer matches what was last
// saved (for example after restoring a stale backup by hand).
package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash returns the lowercase hex SHA-256 digest of plaintext.
func Hash(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

// Verify reports whether plaintext matches storedDigest.
//
// The comparison is constant-time. A malformed stored digest (bad hex,
// wrong length) verifies false; callers that want to treat an absent digest
// as "integrity unknown" must check for absence before calling Verify.
func Verify(plaintext []byte, storedDigest string) bool {
	stored, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(storedDigest)))
	if err != nil || len(stored) != sha256.Size {
		return false
	}

	sum := sha256.Sum256(plaintext)
	return hmac.Equal(sum[:], stored)
}
