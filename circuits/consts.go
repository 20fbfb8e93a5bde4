package circuits

// Sizes shared by the order circuits. Inputs larger than these limits are
// still validated natively but can not be proven.
const (
	MaxPayloadSize = 256
	MaxNullifiers  = 32
	DigestBytes    = 32
	BalanceBytes   = 8
)
