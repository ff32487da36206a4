package wire

import "io"

// Pump opcodes.
const (
	OpSet       byte = 0xca
	OpGet       byte = 0x11
	OpPumpState byte = 0xaa
	OpFault     byte = 0x1f
	OpNoOp      byte = 0xff
)

// Set commands the pump state.
type Set struct {
	State ActuatorState
}

// Opcode implements Message.
func (Set) Opcode() byte { return OpSet }

// AppendPayload implements Message.
func (m Set) AppendPayload(b []byte) []byte { return append(b, byte(m.State)) }

// Get queries the pump state.
type Get struct{}

// Opcode implements Message.
func (Get) Opcode() byte { return OpGet }

// AppendPayload implements Message.
func (Get) AppendPayload(b []byte) []byte { return b }

// PumpState is the state acknowledged by the pump.
type PumpState struct {
	State ActuatorState
}

// Opcode implements Message.
func (PumpState) Opcode() byte { return OpPumpState }

// AppendPayload implements Message.
func (m PumpState) AppendPayload(b []byte) []byte { return append(b, byte(m.State)) }

// Fault reports a hardware condition instead of a state.
type Fault struct {
	Kind FaultKind
}

// Opcode implements Message.
func (Fault) Opcode() byte { return OpFault }

// AppendPayload implements Message.
func (m Fault) AppendPayload(b []byte) []byte { return append(b, byte(m.Kind)) }

// NoOp does nothing. It is valid in both directions.
type NoOp struct{}

// Opcode implements Message.
func (NoOp) Opcode() byte { return OpNoOp }

// AppendPayload implements Message.
func (NoOp) AppendPayload(b []byte) []byte { return b }

func readActuatorState(r io.ByteReader) (ActuatorState, error) {
	b, err := readByte(r)
	if err != nil {
		return 0, err
	}
	if s := ActuatorState(b); s.IsValid() {
		return s, nil
	}
	return 0, ErrInvalidPayload
}

func decodeSet(r io.ByteReader) (Message, error) {
	s, err := readActuatorState(r)
	if err != nil {
		return nil, err
	}
	return Set{State: s}, nil
}

func decodePumpState(r io.ByteReader) (Message, error) {
	s, err := readActuatorState(r)
	if err != nil {
		return nil, err
	}
	return PumpState{State: s}, nil
}

func decodeFault(r io.ByteReader) (Message, error) {
	b, err := readByte(r)
	if err != nil {
		return nil, err
	}
	if k := FaultKind(b); k.IsValid() {
		return Fault{Kind: k}, nil
	}
	return nil, ErrInvalidPayload
}

var (
	// PumpCommands decodes messages sent to the pump.
	PumpCommands = NewTable("pump.commands").
		Register(OpSet, decodeSet).
		Register(OpGet, noPayload(Get{})).
		Register(OpNoOp, noPayload(NoOp{}))
	// PumpReplies decodes messages received from the pump.
	PumpReplies = NewTable("pump.replies").
		Register(OpPumpState, decodePumpState).
		Register(OpFault, decodeFault).
		Register(OpNoOp, noPayload(NoOp{}))
)
