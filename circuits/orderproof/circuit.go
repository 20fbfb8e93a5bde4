// Package orderproof implements the order validator as a Groth16 circuit
// over BN254. A proof shows that a public output bundle was produced by the
// commitment, balance and nullifier checks over some private payload,
// balance, margin and nullifier set.
package orderproof

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/sha2"
	"github.com/consensys/gnark/std/math/cmp"
	"github.com/consensys/gnark/std/math/uints"
	"github.com/vocdoni/z-orders/circuits"
)

// Circuit mirrors the public output bundle in its public fields, in the
// same order, and keeps the validator inputs as secret witness.
type Circuit struct {
	Commitment        [circuits.DigestBytes]frontend.Variable `gnark:",public"`
	Nullifier         [circuits.DigestBytes]frontend.Variable `gnark:",public"`
	BalanceHash       [circuits.DigestBytes]frontend.Variable `gnark:",public"`
	IsValid           frontend.Variable                       `gnark:",public"`
	CommitmentValid   frontend.Variable                       `gnark:",public"`
	BalanceSufficient frontend.Variable                       `gnark:",public"`
	NullifierUnused   frontend.Variable                       `gnark:",public"`

	Payload       [circuits.MaxPayloadSize]frontend.Variable
	PayloadLen    frontend.Variable
	Balance       frontend.Variable
	Margin        frontend.Variable
	Nullifiers    [circuits.MaxNullifiers][circuits.DigestBytes]frontend.Variable
	NullifiersLen frontend.Variable
}

// Define recomputes the three checks and asserts that every public flag
// matches its recomputed value. A false flag is satisfiable, a wrong one is
// not.
func (c *Circuit) Define(api frontend.API) error {
	uapi, err := uints.New[uints.U32](api)
	if err != nil {
		circuits.FrontendError(api, "failed to create uints api", err)
		return err
	}
	for _, flag := range []frontend.Variable{
		c.IsValid, c.CommitmentValid, c.BalanceSufficient, c.NullifierUnused,
	} {
		api.AssertIsBoolean(flag)
	}

	commitmentValid, err := c.verifyCommitment(api, uapi)
	if err != nil {
		circuits.FrontendError(api, "failed to verify commitment", err)
		return err
	}
	balanceSufficient, err := c.checkBalance(api, uapi)
	if err != nil {
		circuits.FrontendError(api, "failed to check balance", err)
		return err
	}
	nullifierUnused := c.checkNullifier(api)
	isValid := api.And(api.And(commitmentValid, balanceSufficient), nullifierUnused)

	api.AssertIsEqual(c.CommitmentValid, commitmentValid)
	api.AssertIsEqual(c.BalanceSufficient, balanceSufficient)
	api.AssertIsEqual(c.NullifierUnused, nullifierUnused)
	api.AssertIsEqual(c.IsValid, isValid)
	return nil
}

// verifyCommitment hashes the first PayloadLen bytes of the payload and
// compares the digest with the public commitment.
func (c *Circuit) verifyCommitment(api frontend.API, uapi *uints.BinaryField[uints.U32]) (frontend.Variable, error) {
	api.AssertIsEqual(cmp.IsLessOrEqual(api, c.PayloadLen, circuits.MaxPayloadSize), 1)
	hasher, err := sha2.New(api)
	if err != nil {
		return nil, err
	}
	payload := make([]uints.U8, len(c.Payload))
	for i := range c.Payload {
		payload[i] = uapi.ByteValueOf(c.Payload[i])
	}
	hasher.Write(payload)
	digest := hasher.FixedLengthSum(c.PayloadLen)
	return equalBytes(api, u8Values(digest), c.Commitment[:]), nil
}

// checkBalance range checks balance and margin to 64 bits, asserts that the
// public balance hash is the digest of the little-endian balance and returns
// whether the balance covers the margin.
func (c *Circuit) checkBalance(api frontend.API, uapi *uints.BinaryField[uints.U32]) (frontend.Variable, error) {
	balanceBits := api.ToBinary(c.Balance, 64)
	api.ToBinary(c.Margin, 64)

	le := make([]uints.U8, circuits.BalanceBytes)
	for i := range le {
		le[i] = uapi.ByteValueOf(api.FromBinary(balanceBits[8*i : 8*i+8]...))
	}
	hasher, err := sha2.New(api)
	if err != nil {
		return nil, err
	}
	hasher.Write(le)
	digest := hasher.Sum()
	for i := range digest {
		api.AssertIsEqual(digest[i].Val, c.BalanceHash[i])
	}
	return cmp.IsLessOrEqual(api, c.Margin, c.Balance), nil
}

// checkNullifier returns 1 if the public nullifier is not among the first
// NullifiersLen slots of the set.
func (c *Circuit) checkNullifier(api frontend.API) frontend.Variable {
	api.AssertIsEqual(cmp.IsLessOrEqual(api, c.NullifiersLen, circuits.MaxNullifiers), 1)
	found := frontend.Variable(0)
	for i := range c.Nullifiers {
		active := cmp.IsLess(api, i, c.NullifiersLen)
		match := equalBytes(api, c.Nullifier[:], c.Nullifiers[i][:])
		found = api.Or(found, api.And(active, match))
	}
	return api.Sub(1, found)
}

// equalBytes returns 1 if both slices hold the same values.
func equalBytes(api frontend.API, a, b []frontend.Variable) frontend.Variable {
	eq := frontend.Variable(1)
	for i := range a {
		eq = api.And(eq, api.IsZero(api.Sub(a[i], b[i])))
	}
	return eq
}

func u8Values(b []uints.U8) []frontend.Variable {
	vals := make([]frontend.Variable, len(b))
	for i := range b {
		vals[i] = b[i].Val
	}
	return vals
}
