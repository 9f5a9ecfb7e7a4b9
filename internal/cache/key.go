package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// keyVersion guards against silently mixing entries across fingerprint
// scheme changes.
const keyVersion = "v1"

// NormalizeText trims leading/trailing whitespace and collapses internal
// whitespace runs to single spaces. Case is preserved: pronunciation can
// be case-sensitive.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Fingerprint derives the cache key for a request. Two semantically
// identical requests (same normalized text, same canonical blend, same
// format, speed, and server) always produce the same fingerprint, which
// is what lets independent processes agree on cache hits without
// coordination. The canonical blend string must come from a parsed
// Blend so that input ordering and whitespace cannot leak into the key.
func Fingerprint(text, canonicalBlend, format string, speed float64, server string) string {
	record := strings.Join([]string{
		keyVersion,
		NormalizeText(text),
		canonicalBlend,
		format,
		fmt.Sprintf("%.2f", speed),
		server,
	}, "\x1f")

	hash := sha256.Sum256([]byte(record))
	return hex.EncodeToString(hash[:16])
}
