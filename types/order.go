package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Digest is a 32 byte SHA-256 output. It is used for order commitments,
// nullifiers and balance hashes. It encodes as hexadecimal in json.
type Digest [DigestSize]byte

// DigestFromBytes copies b into a Digest. It returns an error if b is not
// exactly DigestSize bytes long.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, fmt.Errorf("invalid digest length: got %d bytes, expected %d", len(b), DigestSize)
	}
	copy(d[:], b)
	return d, nil
}

// Bytes returns a copy of the digest as a byte slice.
func (d Digest) Bytes() []byte {
	b := make([]byte, DigestSize)
	copy(b, d[:])
	return b
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) MarshalJSON() ([]byte, error) {
	return HexBytes(d[:]).MarshalJSON()
}

func (d *Digest) UnmarshalJSON(data []byte) error {
	var hb HexBytes
	if err := hb.UnmarshalJSON(data); err != nil {
		return err
	}
	nd, err := DigestFromBytes(hb)
	if err != nil {
		return err
	}
	*d = nd
	return nil
}

// OrderCommitment is the publicly visible claim about an order: the digest
// binding the private payload, the single use nullifier and the digest of
// the account balance.
type OrderCommitment struct {
	Commitment  Digest `json:"commitment"  cbor:"0,keyasint"`
	Nullifier   Digest `json:"nullifier"   cbor:"1,keyasint"`
	BalanceHash Digest `json:"balanceHash" cbor:"2,keyasint"`
}

// ValidationResult holds the outcome of the three independent checks and
// their conjunction. A false flag is a valid result, not an error.
type ValidationResult struct {
	IsValid           bool `json:"isValid"           cbor:"0,keyasint"`
	CommitmentValid   bool `json:"commitmentValid"   cbor:"1,keyasint"`
	BalanceSufficient bool `json:"balanceSufficient" cbor:"2,keyasint"`
	NullifierUnused   bool `json:"nullifierUnused"   cbor:"3,keyasint"`
}

// Flags returns the four flags in their wire order: is_valid,
// commitment_valid, balance_sufficient, nullifier_unused.
func (r ValidationResult) Flags() [ValidationResultSize]bool {
	return [ValidationResultSize]bool{
		r.IsValid,
		r.CommitmentValid,
		r.BalanceSufficient,
		r.NullifierUnused,
	}
}

func (r ValidationResult) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(data)
}
