// Package ratelimit implements the per-client admission gate shared by the
// contact form and the queue join endpoint. Requests are keyed by a client
// fingerprint (origin IP plus a hash of the declared user agent) and counted
// in Redis over a fixed expiry window.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives the canonical rate-limit key for a client: the origin
// IP joined with the first 16 hex characters of the SHA-256 of the User-Agent
// header. The raw user agent is never stored; only this derivation is kept,
// and only for the lifetime of the rate window.
//
// The same derivation is used everywhere a fingerprint is needed (admission
// counting and the bot scorer's recent-submission signal) so the two always
// observe the same counter.
func Fingerprint(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(userAgent))
	return ip + ":" + hex.EncodeToString(sum[:])[:16]
}
