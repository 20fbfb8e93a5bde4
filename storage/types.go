package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/z-orders/types"
)

// Order is an order submitted for validation. Stream is the private input
// stream of the validator and is never exposed once stored.
type Order struct {
	ID          uuid.UUID `cbor:"1,keyasint"`
	Stream      []byte    `cbor:"2,keyasint"`
	SubmittedAt int64     `cbor:"3,keyasint"`
}

// Receipt is the result of processing an order. If the input stream was
// malformed, Error is set and there is no bundle, result or proof. If the
// order was validated but proving or signing failed, Error is set next to
// the bundle and result.
type Receipt struct {
	ID          uuid.UUID               `json:"orderId" cbor:"1,keyasint"`
	Bundle      types.HexBytes          `json:"bundle,omitempty" cbor:"2,keyasint,omitempty"`
	Result      *types.ValidationResult `json:"result,omitempty" cbor:"3,keyasint,omitempty"`
	Proof       types.HexBytes          `json:"proof,omitempty" cbor:"4,keyasint,omitempty"`
	Signature   types.HexBytes          `json:"signature,omitempty" cbor:"5,keyasint,omitempty"`
	Error       string                  `json:"error,omitempty" cbor:"6,keyasint,omitempty"`
	ProcessedAt int64                   `json:"processedAt" cbor:"7,keyasint"`
}

// Malformed reports whether the order could not be decoded.
func (r *Receipt) Malformed() bool {
	return r.Error != "" && len(r.Bundle) == 0
}

// Failed reports whether the order was validated but its proof or
// signature could not be produced.
func (r *Receipt) Failed() bool {
	return r.Error != "" && len(r.Bundle) != 0
}

// ProcessedTime returns ProcessedAt as a time.
func (r *Receipt) ProcessedTime() time.Time {
	return time.Unix(r.ProcessedAt, 0)
}

// artifactHashes are the hashes of the circuit definition, proving key and
// verifying key of a circuit.
type artifactHashes struct {
	CircuitDefinition []byte `cbor:"1,keyasint"`
	ProvingKey        []byte `cbor:"2,keyasint"`
	VerifyingKey      []byte `cbor:"3,keyasint"`
}
