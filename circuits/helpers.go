package circuits

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
)

// FrontendError function is an in-circuit function to print an error message
// and an error trace, making the circuit fail.
func FrontendError(api frontend.API, msg string, trace error) {
	err := fmt.Errorf("%s", msg)
	if trace != nil {
		err = fmt.Errorf("%w: %v", err, trace)
	}
	api.Println(err.Error())
	api.AssertIsEqual(1, 0)
}

// BoolToBigInt returns 1 when b is true or 0 otherwise
func BoolToBigInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

// BytesToVariables returns one variable per byte of b, padded with zeros up
// to n elements. It panics if b is longer than n.
func BytesToVariables(b []byte, n int) []frontend.Variable {
	if len(b) > n {
		panic(fmt.Sprintf("%d bytes do not fit in %d variables", len(b), n))
	}
	vars := make([]frontend.Variable, n)
	for i := range vars {
		if i < len(b) {
			vars[i] = b[i]
		} else {
			vars[i] = 0
		}
	}
	return vars
}
