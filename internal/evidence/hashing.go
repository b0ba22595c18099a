package evidence

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// SpanHash hashes the literal source bytes of a Unit's span. It is
// fast enough to recompute on every scan and feeds the span-hash
// component of the cache's Evidence key (§4.7), so it deliberately
// isn't SHA-256 — that cost belongs to the outer cache key alone.
func SpanHash(span []byte) string {
	sum := blake2b.Sum256(span)
	return hex.EncodeToString(sum[:])
}
