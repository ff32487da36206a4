package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrNeedMoreBytes indicates the input ended before a complete frame.
	// It is not a failure: decoding must be retried once more bytes arrive.
	ErrNeedMoreBytes = errors.New("need more bytes")
	// ErrUnknownOpcode indicates the opcode is not in the decoding table.
	ErrUnknownOpcode = errors.New("unknown opcode")
	// ErrInvalidPayload indicates a payload byte outside its value set.
	ErrInvalidPayload = errors.New("invalid payload")
)

// DecodeError reports a frame which can't be decoded.
type DecodeError struct {
	Table  string
	Opcode byte
	Err    error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode opcode 0x%02x: %v", e.Table, e.Opcode, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
