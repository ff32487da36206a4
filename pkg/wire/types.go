package wire

import (
	"fmt"
	"strings"
)

// Celsius is a temperature sample in degrees Celsius.
type Celsius int8

// ActuatorState is the on/off state of the pump.
type ActuatorState byte

// Actuator states.
const (
	StateOn  ActuatorState = 0x5e
	StateOff ActuatorState = 0xed
)

// IsValid checks if the value is a known state.
func (s ActuatorState) IsValid() bool {
	return s == StateOn || s == StateOff
}

func (s ActuatorState) String() string {
	switch s {
	case StateOn:
		return "on"
	case StateOff:
		return "off"
	default:
		return fmt.Sprintf("state(0x%02x)", byte(s))
	}
}

// ParseActuatorState parses "on" or "off".
func ParseActuatorState(str string) (ActuatorState, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "on", "1", "true":
		return StateOn, nil
	case "off", "0", "false":
		return StateOff, nil
	}
	return 0, fmt.Errorf("invalid actuator state %q", str)
}

// FaultKind is the hardware condition reported by the pump.
type FaultKind byte

// Fault kinds.
const (
	FaultTemperature FaultKind = 0xde
	FaultCurrent     FaultKind = 0xad
)

// IsValid checks if the value is a known fault.
func (k FaultKind) IsValid() bool {
	return k == FaultTemperature || k == FaultCurrent
}

func (k FaultKind) String() string {
	switch k {
	case FaultTemperature:
		return "temperature"
	case FaultCurrent:
		return "current"
	default:
		return fmt.Sprintf("fault(0x%02x)", byte(k))
	}
}
