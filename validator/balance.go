package validator

import "github.com/vocdoni/z-orders/types"

// CheckBalance reports whether balance covers margin and returns the balance
// digest. The digest is computed regardless of the comparison outcome.
func CheckBalance(balance, margin uint64) (bool, types.Digest) {
	sufficient := balance >= margin
	return sufficient, HashBalance(balance)
}
