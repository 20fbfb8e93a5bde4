package types

const (
	// DigestSize is the size in bytes of every digest, commitment and
	// nullifier handled by the validator.
	DigestSize = 32
	// OrderCommitmentSize is the encoded size of an OrderCommitment.
	OrderCommitmentSize = 3 * DigestSize
	// ValidationResultSize is the encoded size of a ValidationResult, one
	// byte per flag.
	ValidationResultSize = 4
	// PublicValuesSize is the size of the committed output bundle:
	// commitment, nullifier, balance hash and the validation result.
	PublicValuesSize = 3*DigestSize + ValidationResultSize
)
