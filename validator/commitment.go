package validator

import (
	"crypto/subtle"

	"github.com/vocdoni/z-orders/types"
)

// VerifyCommitment reports whether the payload hashes to the declared
// commitment. The comparison is byte exact over the full digest.
func VerifyCommitment(payload []byte, commitment types.Digest) bool {
	computed := Hash(payload)
	return subtle.ConstantTimeCompare(computed[:], commitment[:]) == 1
}
