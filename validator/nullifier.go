package validator

import "github.com/vocdoni/z-orders/types"

// CheckNullifier reports whether nullifier is absent from the used set.
// Membership is exact equality over the 32 bytes; an empty set never
// contains the nullifier.
func CheckNullifier(nullifier types.Digest, used []types.Digest) bool {
	for _, n := range used {
		if n == nullifier {
			return false
		}
	}
	return true
}
