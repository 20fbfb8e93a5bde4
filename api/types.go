package api

import (
	"github.com/google/uuid"
	"github.com/vocdoni/z-orders/sequencer"
	"github.com/vocdoni/z-orders/types"
	"github.com/vocdoni/z-orders/validator"
)

// OrderFields are the validator inputs as separate JSON fields.
type OrderFields struct {
	Commitment     types.Digest   `json:"commitment"`
	Nullifier      types.Digest   `json:"nullifier"`
	BalanceHash    types.Digest   `json:"balanceHash"`
	Payload        types.HexBytes `json:"payload"`
	Balance        uint64         `json:"balance"`
	RequiredMargin uint64         `json:"requiredMargin"`
	NullifierSet   []types.Digest `json:"nullifierSet"`
}

// Inputs returns the fields as validator inputs.
func (f *OrderFields) Inputs() *validator.Inputs {
	return &validator.Inputs{
		Order: types.OrderCommitment{
			Commitment:  f.Commitment,
			Nullifier:   f.Nullifier,
			BalanceHash: f.BalanceHash,
		},
		Payload:        f.Payload,
		Balance:        f.Balance,
		RequiredMargin: f.RequiredMargin,
		NullifierSet:   f.NullifierSet,
	}
}

// Order is the body of an order submission. Exactly one of Inputs (the
// encoded input stream) or Fields must be set.
type Order struct {
	Inputs types.HexBytes `json:"inputs,omitempty"`
	Fields *OrderFields   `json:"order,omitempty"`
}

// NewOrderResponse is the response to an order submission.
type NewOrderResponse struct {
	OrderID uuid.UUID `json:"orderId"`
}

// OrderStatusPending is the status of an order waiting to be processed.
const (
	OrderStatusPending   = "pending"
	OrderStatusProcessed = "processed"
	OrderStatusMalformed = "malformed"
	OrderStatusFailed    = "failed"
)

// OrderResponse is the status of an order and, once processed, its
// receipt.
type OrderResponse struct {
	OrderID     uuid.UUID               `json:"orderId"`
	Status      string                  `json:"status"`
	Bundle      types.HexBytes          `json:"bundle,omitempty"`
	Result      *types.ValidationResult `json:"result,omitempty"`
	Proof       types.HexBytes          `json:"proof,omitempty"`
	Signature   types.HexBytes          `json:"signature,omitempty"`
	Error       string                  `json:"error,omitempty"`
	ProcessedAt int64                   `json:"processedAt,omitempty"`
}

// ValidationResponse is the response of a synchronous validation: the
// committed output bundle and its decoded form.
type ValidationResponse struct {
	Bundle types.HexBytes `json:"bundle"`
	*validator.Output
}

// InfoResponse describes the circuit limits and the sequencer status.
type InfoResponse struct {
	MaxPayloadSize   int              `json:"maxPayloadSize"`
	MaxNullifiers    int              `json:"maxNullifiers"`
	PublicValuesSize int              `json:"publicValuesSize"`
	SequencerAddress string           `json:"sequencerAddress,omitempty"`
	Proving          bool             `json:"proving"`
	PendingOrders    int              `json:"pendingOrders"`
	Stats            *sequencer.Stats `json:"stats,omitempty"`
	// ArtifactHashes are the circuit definition, proving key and verifying
	// key hashes of the order prover, downloadable from /artifacts.
	ArtifactHashes []types.HexBytes `json:"artifactHashes,omitempty"`
}
