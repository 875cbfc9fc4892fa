// Package checksum computes the content checksums used as recipe ETags.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Match reports whether tag names the checksum of data. tag may be an HTTP
// entity tag: quotes and a weak "W/" prefix are ignored, as is hex case.
func Match(data []byte, tag string) bool {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
	tag = strings.ToLower(strings.Trim(tag, `"`))
	return subtle.ConstantTimeCompare([]byte(tag), []byte(Sum(data))) == 1
}
