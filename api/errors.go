package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/z-orders/log"
)

// Error is returned by the order handlers. It pairs the error with a stable
// numeric code, listed in errors_definition.go, and the HTTP status to
// answer with.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON encodes the error message and its code. HTTPstatus is not
// part of the body.
//
// Example output: {"error":"malformed order input: input 3 (balance): ...","code":40010}
func (e Error) MarshalJSON() ([]byte, error) {
	// Err is an interface, json.Marshal would not call Err.Error()
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// Error returns the message of the wrapped error.
func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// Write sends the error as a JSON body with its HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	if log.Level() == log.LogLevelDebug {
		log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(append(msg, '\n')); err != nil {
		log.Warnw("failed to write API error", "error", err.Error())
	}
}

// Withf returns a copy of the error with a formatted detail appended, for
// instance the offending order ID.
func (e Error) Withf(format string, args ...any) Error {
	return e.With(fmt.Sprintf(format, args...))
}

// With returns a copy of the error with s appended.
func (e Error) With(s string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of the error wrapping err, so errors.Is still
// matches causes such as validator.ErrMalformedInput.
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %w", e.Err, err),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}
