package validator

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/vocdoni/z-orders/types"
)

// Hash returns the SHA-256 digest of data. A fresh hasher is used on every
// call, no state is shared between executions.
func Hash(data []byte) types.Digest {
	return sha256.Sum256(data)
}

// HashBalance returns the digest of the balance encoded as 8 little-endian
// bytes. It is the only trace of the balance that is ever exposed.
func HashBalance(balance uint64) types.Digest {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], balance)
	return Hash(buf[:])
}
