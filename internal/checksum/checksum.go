// Package checksum derives the stable digests used to suppress duplicate
// ledger deliveries.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Bucket truncates at to window. A non-positive window disables bucketing and
// keeps nanosecond precision.
func Bucket(at time.Time, window time.Duration) int64 {
	if window <= 0 {
		return at.UTC().UnixNano()
	}
	return at.UTC().Truncate(window).UnixNano()
}

// IdempotencyKey digests parts joined by "|" together with the time bucket of
// at, so two deliveries of the same event captured within one window produce
// the same key.
func IdempotencyKey(at time.Time, window time.Duration, parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p)
		b.WriteByte('|')
	}
	b.WriteString(strconv.FormatInt(Bucket(at, window), 10))
	return Sum([]byte(b.String()))
}
