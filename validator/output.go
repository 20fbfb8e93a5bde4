package validator

import (
	"errors"
	"fmt"

	"github.com/vocdoni/z-orders/types"
)

// errAlreadyCommitted is returned by PublicValues.Commit if the bundle was
// already written.
var errAlreadyCommitted = errors.New("public values already committed")

// Aggregate combines the three check results into a ValidationResult.
func Aggregate(commitmentValid, balanceSufficient, nullifierUnused bool) types.ValidationResult {
	return types.ValidationResult{
		IsValid:           commitmentValid && balanceSufficient && nullifierUnused,
		CommitmentValid:   commitmentValid,
		BalanceSufficient: balanceSufficient,
		NullifierUnused:   nullifierUnused,
	}
}

// PublicValues is the ordered output buffer of an execution. Its schema is
// fixed: commitment, nullifier, balance hash and validation result, in
// this order, written together by a single Commit call.
type PublicValues struct {
	w         *Writer
	committed bool
}

// NewPublicValues returns an empty output buffer.
func NewPublicValues() *PublicValues {
	return &PublicValues{w: NewWriter()}
}

// Commit appends the four public outputs. It can only be called once.
func (pv *PublicValues) Commit(commitment, nullifier, balanceHash types.Digest, result types.ValidationResult) error {
	if pv.committed {
		return errAlreadyCommitted
	}
	writeOutputs(pv.w, commitment, nullifier, balanceHash, result)
	pv.committed = true
	return nil
}

// writeOutputs appends the four public outputs in their wire order.
func writeOutputs(w *Writer, commitment, nullifier, balanceHash types.Digest, result types.ValidationResult) {
	w.WriteDigest(commitment)
	w.WriteDigest(nullifier)
	w.WriteDigest(balanceHash)
	for _, f := range result.Flags() {
		w.WriteBool(f)
	}
}

// Bytes returns the committed bundle, or nil if nothing was committed.
func (pv *PublicValues) Bytes() []byte {
	if !pv.committed {
		return nil
	}
	return pv.w.Bytes()
}

// Output is the decoded form of the public output bundle.
type Output struct {
	Commitment  types.Digest           `json:"commitment"`
	Nullifier   types.Digest           `json:"nullifier"`
	BalanceHash types.Digest           `json:"balanceHash"`
	Result      types.ValidationResult `json:"result"`
}

// Bytes encodes the output in its positional wire format.
func (o *Output) Bytes() []byte {
	w := NewWriter()
	writeOutputs(w, o.Commitment, o.Nullifier, o.BalanceHash, o.Result)
	return w.Bytes()
}

// DecodeOutput parses a public output bundle. The bundle must be exactly
// types.PublicValuesSize bytes long and every flag must be 0x00 or 0x01.
func DecodeOutput(bundle []byte) (*Output, error) {
	if len(bundle) != types.PublicValuesSize {
		return nil, fmt.Errorf("%w: output bundle of %d bytes, expected %d",
			ErrMalformedInput, len(bundle), types.PublicValuesSize)
	}
	r := NewReader(bundle)
	o := &Output{}
	var err error
	if o.Commitment, err = r.ReadDigest(); err != nil {
		return nil, err
	}
	if o.Nullifier, err = r.ReadDigest(); err != nil {
		return nil, err
	}
	if o.BalanceHash, err = r.ReadDigest(); err != nil {
		return nil, err
	}
	var flags [types.ValidationResultSize]bool
	for i := range flags {
		if flags[i], err = r.ReadBool(); err != nil {
			return nil, err
		}
	}
	o.Result = types.ValidationResult{
		IsValid:           flags[0],
		CommitmentValid:   flags[1],
		BalanceSufficient: flags[2],
		NullifierUnused:   flags[3],
	}
	return o, r.Finish()
}
