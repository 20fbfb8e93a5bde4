package validator

import "errors"

// ErrMalformedInput is the only error the validator produces. It is
// returned, wrapped with context, whenever an input cannot be decoded into
// its expected shape. An execution that fails with it emits no output.
var ErrMalformedInput = errors.New("malformed input")
