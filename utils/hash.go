package utils

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// DefaultHashLength is the number of hex characters kept from a field digest.
const DefaultHashLength = 8

// Hasher produces short content hashes for field values. Short digests can
// collide; a collision between a manual value and a newly scraped one makes the
// field look untouched. That is accepted in exchange for a compact cache.
type Hasher struct {
	Length int
}

// NewHasher returns a Hasher keeping length hex characters (1..64).
func NewHasher(length int) Hasher {
	if length <= 0 || length > sha256.Size*2 {
		length = DefaultHashLength
	}
	return Hasher{Length: length}
}

// Sum hashes the NFC form of value. Empty values hash to "".
func (h Hasher) Sum(value string) string {
	if value == "" {
		return ""
	}
	n := h.Length
	if n <= 0 || n > sha256.Size*2 {
		n = DefaultHashLength
	}
	sum := sha256.Sum256([]byte(norm.NFC.String(value)))
	return hex.EncodeToString(sum[:])[:n]
}
