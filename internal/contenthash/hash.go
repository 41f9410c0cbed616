// Package contenthash derives the content-addressed key for stored
// learning content.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the SHA-256 digest of content as a 64-character lowercase
// hex string. The digest is the unique key for a content record: two
// records with the same text always collide onto the same key.
func Sum(content string) string {
	digest := sha256.Sum256([]byte(content))
	return hex.EncodeToString(digest[:])
}
