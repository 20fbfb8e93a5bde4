package orderproof

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/z-orders/circuits"
	"github.com/vocdoni/z-orders/types"
	"github.com/vocdoni/z-orders/validator"
)

// ErrInputTooLarge is returned when an order does not fit the circuit
// limits. Such orders are validated natively but can not be proven.
var ErrInputTooLarge = errors.New("order input too large for the circuit")

// Fits reports whether the inputs can be proven by the circuit.
func Fits(in *validator.Inputs) error {
	if len(in.Payload) > circuits.MaxPayloadSize {
		return fmt.Errorf("%w: payload of %d bytes, max %d",
			ErrInputTooLarge, len(in.Payload), circuits.MaxPayloadSize)
	}
	if len(in.NullifierSet) > circuits.MaxNullifiers {
		return fmt.Errorf("%w: %d nullifiers, max %d",
			ErrInputTooLarge, len(in.NullifierSet), circuits.MaxNullifiers)
	}
	return nil
}

// Assignment returns the full witness assignment for the inputs and the
// output computed from them by the validator.
func Assignment(in *validator.Inputs, out *validator.Output) (*Circuit, error) {
	if err := Fits(in); err != nil {
		return nil, err
	}
	assignment := emptyAssignment()
	setPublic(assignment, out)

	copy(assignment.Payload[:], circuits.BytesToVariables(in.Payload, circuits.MaxPayloadSize))
	assignment.PayloadLen = len(in.Payload)
	assignment.Balance = in.Balance
	assignment.Margin = in.RequiredMargin
	for i, nullifier := range in.NullifierSet {
		copy(assignment.Nullifiers[i][:], circuits.BytesToVariables(nullifier[:], circuits.DigestBytes))
	}
	assignment.NullifiersLen = len(in.NullifierSet)
	return assignment, nil
}

// PublicAssignment rebuilds the public part of the witness from an output
// bundle, to verify a proof without knowing the private inputs.
func PublicAssignment(bundle []byte) (*Circuit, error) {
	out, err := validator.DecodeOutput(bundle)
	if err != nil {
		return nil, err
	}
	assignment := emptyAssignment()
	setPublic(assignment, out)
	return assignment, nil
}

func setPublic(assignment *Circuit, out *validator.Output) {
	copy(assignment.Commitment[:], digestVariables(out.Commitment))
	copy(assignment.Nullifier[:], digestVariables(out.Nullifier))
	copy(assignment.BalanceHash[:], digestVariables(out.BalanceHash))
	assignment.IsValid = circuits.BoolToBigInt(out.Result.IsValid)
	assignment.CommitmentValid = circuits.BoolToBigInt(out.Result.CommitmentValid)
	assignment.BalanceSufficient = circuits.BoolToBigInt(out.Result.BalanceSufficient)
	assignment.NullifierUnused = circuits.BoolToBigInt(out.Result.NullifierUnused)
}

func digestVariables(d types.Digest) []frontend.Variable {
	return circuits.BytesToVariables(d[:], circuits.DigestBytes)
}

// emptyAssignment returns an assignment with every variable set to zero.
func emptyAssignment() *Circuit {
	c := &Circuit{
		IsValid:           0,
		CommitmentValid:   0,
		BalanceSufficient: 0,
		NullifierUnused:   0,
		PayloadLen:        0,
		Balance:           0,
		Margin:            0,
		NullifiersLen:     0,
	}
	for i := range c.Commitment {
		c.Commitment[i] = 0
		c.Nullifier[i] = 0
		c.BalanceHash[i] = 0
	}
	for i := range c.Payload {
		c.Payload[i] = 0
	}
	for i := range c.Nullifiers {
		for j := range c.Nullifiers[i] {
			c.Nullifiers[i][j] = 0
		}
	}
	return c
}
