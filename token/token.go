// Package token derives the ownership-proof value a domain owner publishes as a
// TXT record on the apex of their domain.
//
// The derivation is
//
//	"aa-verify=" + hex(SHA1(secret + ownerID + decimal(domainCount)))
//
// with plain concatenation and no delimiter. SHA1 over a delimiter-free
// concatenation is weak: different (ownerID, count) pairs can produce the same
// preimage, and SHA1 is not a KDF. The format is kept because tokens derived
// this way are already published in customer zones. A replacement must keep
// the same inputs and the "aa-verify=" prefix.
//
// The token depends on how many domains the owner had at verification time,
// so it changes as the owner adds domains. Callers capture that count once
// and pass it in; they must not re-read it mid-check.
package token

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// Prefix starts every ownership token.
const Prefix = "aa-verify="

// Derive returns the expected ownership TXT value for the given inputs.
func Derive(secret, ownerID string, domainCount int) string {
	sum := sha1.Sum([]byte(secret + ownerID + strconv.Itoa(domainCount)))
	return Prefix + hex.EncodeToString(sum[:])
}

// Matches reports whether a published TXT value, after trimming surrounding
// whitespace, is exactly the expected token.
func Matches(published, expected string) bool {
	return expected != "" && strings.TrimSpace(published) == expected
}
