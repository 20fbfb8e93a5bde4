package orderprooftest

import (
	"github.com/vocdoni/z-orders/types"
	"github.com/vocdoni/z-orders/util"
	"github.com/vocdoni/z-orders/validator"
)

// Scenario identifies one of the reference orders used across tests.
type Scenario string

const (
	// ScenarioValid is an order that passes every check.
	ScenarioValid Scenario = "valid"
	// ScenarioInsufficientBalance has a balance below the required margin.
	ScenarioInsufficientBalance Scenario = "insufficient-balance"
	// ScenarioReplayedNullifier has its nullifier in the used set.
	ScenarioReplayedNullifier Scenario = "replayed-nullifier"
	// ScenarioTamperedPayload has a payload that does not match the
	// commitment.
	ScenarioTamperedPayload Scenario = "tampered-payload"
)

// Scenarios lists every reference order in a stable order.
var Scenarios = []Scenario{
	ScenarioValid,
	ScenarioInsufficientBalance,
	ScenarioReplayedNullifier,
	ScenarioTamperedPayload,
}

// TestPayload is the payload committed by the reference orders.
var TestPayload = []byte("BUY 10 BTC @ 50000")

// OrderInputsForTest returns the validator inputs of the given scenario.
// Nullifiers are random, so two calls never return the same order.
func OrderInputsForTest(s Scenario) *validator.Inputs {
	in := &validator.Inputs{
		Order: types.OrderCommitment{
			Commitment:  validator.Hash(TestPayload),
			Nullifier:   types.Digest(util.Random32()),
			BalanceHash: validator.HashBalance(1000),
		},
		Payload:        TestPayload,
		Balance:        1000,
		RequiredMargin: 500,
		NullifierSet: []types.Digest{
			types.Digest(util.Random32()),
			types.Digest(util.Random32()),
			types.Digest(util.Random32()),
		},
	}
	switch s {
	case ScenarioInsufficientBalance:
		in.Balance = 100
		in.Order.BalanceHash = validator.HashBalance(100)
	case ScenarioReplayedNullifier:
		in.NullifierSet[1] = in.Order.Nullifier
	case ScenarioTamperedPayload:
		in.Payload = []byte("BUY 99 BTC @ 50000")
	}
	return in
}

// ExpectedResult returns the validation result of the given scenario.
func ExpectedResult(s Scenario) types.ValidationResult {
	r := types.ValidationResult{
		CommitmentValid:   s != ScenarioTamperedPayload,
		BalanceSufficient: s != ScenarioInsufficientBalance,
		NullifierUnused:   s != ScenarioReplayedNullifier,
	}
	r.IsValid = r.CommitmentValid && r.BalanceSufficient && r.NullifierUnused
	return r
}

// OrderStreamForTest returns the encoded input stream of the given
// scenario.
func OrderStreamForTest(s Scenario) []byte {
	return OrderInputsForTest(s).Bytes()
}
