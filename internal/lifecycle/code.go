package lifecycle

import (
	"crypto/rand"
)

// Verification code alphabet excludes visually ambiguous characters
// (0/O, 1/I). 32 characters, so a random byte mod len has no bias.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codePrefix   = "MOLT-"
	codeLength   = 4
)

// GenerateDynamicCode returns a fresh per-task verification secret in the
// form MOLT-XXXX. The claimant must echo it back verbatim on submission.
func GenerateDynamicCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	out := make([]byte, 0, len(codePrefix)+codeLength)
	out = append(out, codePrefix...)
	for _, b := range buf {
		out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return string(out)
}
