// Package validator implements the validation core of the confidential
// order submission scheme. Given an order commitment and the private
// witnesses of an order (payload, balance, required margin and the set of
// consumed nullifiers) it decides whether the order is well formed,
// collateralized and not a replay, and commits a fixed bundle of public
// values:
//
//	commitment (32) | nullifier (32) | balance hash (32) | result (4)
//
// Every execution is a pure function of its inputs. The three checks always
// run, regardless of each other's outcome, and a false flag is a valid
// result. The only failure is malformed input, which aborts the execution
// without emitting any output.
package validator

import (
	"fmt"

	"github.com/vocdoni/z-orders/types"
)

// Inputs holds the five positional inputs of an execution.
type Inputs struct {
	Order          types.OrderCommitment
	Payload        []byte
	Balance        uint64
	RequiredMargin uint64
	NullifierSet   []types.Digest
}

// Bytes encodes the inputs as an input stream.
func (in *Inputs) Bytes() []byte {
	w := NewWriter()
	w.WriteOrderCommitment(in.Order)
	w.WriteBytes(in.Payload)
	w.WriteU64(in.Balance)
	w.WriteU64(in.RequiredMargin)
	w.WriteNullifierSet(in.NullifierSet)
	return w.Bytes()
}

// DecodeInputs reads the five inputs from the stream, in order. It fails
// with ErrMalformedInput on the first input that can not be decoded or if
// the stream has trailing bytes.
func DecodeInputs(stream []byte) (*Inputs, error) {
	r := NewReader(stream)
	in := &Inputs{}
	var err error
	if in.Order, err = r.ReadOrderCommitment(); err != nil {
		return nil, fmt.Errorf("input 1 (order commitment): %w", err)
	}
	if in.Payload, err = r.ReadBytes(); err != nil {
		return nil, fmt.Errorf("input 2 (order payload): %w", err)
	}
	if in.Balance, err = r.ReadU64(); err != nil {
		return nil, fmt.Errorf("input 3 (balance): %w", err)
	}
	if in.RequiredMargin, err = r.ReadU64(); err != nil {
		return nil, fmt.Errorf("input 4 (required margin): %w", err)
	}
	if in.NullifierSet, err = r.ReadNullifierSet(); err != nil {
		return nil, fmt.Errorf("input 5 (nullifier set): %w", err)
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return in, nil
}

// Validate runs the commitment, balance and nullifier checks over the
// inputs and returns the public outputs. The emitted balance hash is the
// one recomputed from the private balance, never the declared one.
func Validate(in *Inputs) *Output {
	commitmentValid := VerifyCommitment(in.Payload, in.Order.Commitment)
	balanceSufficient, balanceHash := CheckBalance(in.Balance, in.RequiredMargin)
	nullifierUnused := CheckNullifier(in.Order.Nullifier, in.NullifierSet)

	return &Output{
		Commitment:  in.Order.Commitment,
		Nullifier:   in.Order.Nullifier,
		BalanceHash: balanceHash,
		Result:      Aggregate(commitmentValid, balanceSufficient, nullifierUnused),
	}
}

// Execute decodes the input stream, validates the order and returns the
// committed public output bundle. If any input is malformed it returns a
// nil bundle and an error wrapping ErrMalformedInput.
func Execute(stream []byte) ([]byte, error) {
	in, err := DecodeInputs(stream)
	if err != nil {
		return nil, err
	}
	out := Validate(in)

	pv := NewPublicValues()
	if err := pv.Commit(out.Commitment, out.Nullifier, out.BalanceHash, out.Result); err != nil {
		return nil, err
	}
	return pv.Bytes(), nil
}
