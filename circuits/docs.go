// Package circuits contains the zkSNARK side of the order validator and the
// helpers shared by its circuits.
//
// The native validator (package validator) decides whether a confidential
// order is well formed: its payload matches the commitment, the trader
// balance covers the required margin and the nullifier was not used before.
// The orderproof circuit proves that the public output bundle was produced
// by exactly that computation over private inputs, so a verifier learns the
// four flags and the three digests but never the payload, the balance or the
// nullifier set.
//
//	+-------------------+
//	|  Order validator  |  native Go, sha256       <- validator
//	+-------------------+
//	          |
//	          v
//	+-------------------+
//	|    Order proof    |  Groth16 over BN254      <- circuits/orderproof
//	+-------------------+
//
// Proving and verifying keys are content addressed artifacts cached under
// BaseDir.
package circuits
