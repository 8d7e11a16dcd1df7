package realtime

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingType is wrapped by a DecodeError when a frame has no type.
	ErrMissingType = errors.New("envelope has no type")

	// ErrReconnectExhausted is logged when the reconnect budget is spent.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// DecodeError reports an inbound frame that could not be decoded into an
// Envelope. The frame is dropped; the connection is unaffected.
type DecodeError struct {
	Frame []byte
	Err   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame: %v", e.Err)
}

// Unwrap provides compatibility for Go 1.13+ error chains.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// HandlerError wraps a failure returned or raised by a registered handler.
type HandlerError struct {
	Type EventType
	Err  error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %q: %v", e.Type, e.Err)
}

// Unwrap provides compatibility for Go 1.13+ error chains.
func (e *HandlerError) Unwrap() error {
	return e.Err
}
