// Package digest computes the content digests recorded in a pass manifest.
package digest

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is what the wallet manifest format mandates.
	"encoding/hex"
)

// Hex returns the lowercase hexadecimal SHA-1 digest of content.
func Hex(content []byte) string {
	sum := sha1.Sum(content) //nolint:gosec // See import.

	return hex.EncodeToString(sum[:])
}
