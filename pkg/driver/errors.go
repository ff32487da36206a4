package driver

import (
	"errors"
	"fmt"

	"github.com/robotalks/thermo.go/pkg/framing"
	"github.com/robotalks/thermo.go/pkg/hal"
	"github.com/robotalks/thermo.go/pkg/wire"
)

// Kind classifies exchange failures.
type Kind int

// Failure kinds.
const (
	KindLink Kind = iota
	KindOverflow
	KindDeserialize
	KindTimeout
	KindFault
	KindNonConformance
)

func (k Kind) String() string {
	switch k {
	case KindOverflow:
		return "overflow"
	case KindDeserialize:
		return "deserialize"
	case KindTimeout:
		return "timeout"
	case KindFault:
		return "fault"
	case KindNonConformance:
		return "non-conformance"
	default:
		return "link"
	}
}

var (
	// ErrOverflow indicates the framing buffer overflowed.
	ErrOverflow = framing.ErrOverflow
	// ErrTimeout indicates no reply was decoded before the deadline.
	ErrTimeout = hal.ErrTimeout
	// ErrNonConformance indicates the reply contradicts the command.
	ErrNonConformance = errors.New("non-conformance")
)

// Error is the failure of an exchange with a peripheral.
type Error struct {
	Peripheral string
	Kind       Kind
	Err        error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Peripheral, e.Kind, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// FaultError is a hardware condition reported by the peripheral.
type FaultError struct {
	Fault wire.FaultKind
}

// Error implements error.
func (e *FaultError) Error() string {
	return fmt.Sprintf("peripheral fault: %s", e.Fault)
}

// NonConformanceError carries the command and the contradicting reply.
type NonConformanceError struct {
	Command wire.Message
	Reply   wire.Message
}

// Error implements error.
func (e *NonConformanceError) Error() string {
	return fmt.Sprintf("%v: command %#v, reply %#v", ErrNonConformance, e.Command, e.Reply)
}

// Is matches ErrNonConformance.
func (e *NonConformanceError) Is(target error) bool {
	return target == ErrNonConformance
}

// KindOf classifies an error.
func KindOf(err error) Kind {
	var (
		driverErr *Error
		decodeErr *wire.DecodeError
		faultErr  *FaultError
	)
	switch {
	case errors.As(err, &driverErr):
		return driverErr.Kind
	case errors.Is(err, ErrOverflow):
		return KindOverflow
	case errors.As(err, &decodeErr):
		return KindDeserialize
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.As(err, &faultErr):
		return KindFault
	case errors.Is(err, ErrNonConformance):
		return KindNonConformance
	}
	return KindLink
}
