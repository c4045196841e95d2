package rows

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StableDigest hashes parts joined by "|" and returns the first length hex
// characters. A non-positive or oversized length returns the full digest.
func StableDigest(parts []string, length int) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	h := hex.EncodeToString(sum[:])
	if length <= 0 || length > len(h) {
		return h
	}
	return h[:length]
}
