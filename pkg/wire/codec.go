package wire

import (
	"fmt"
	"io"
)

// MaxFrameSize is the size of the largest frame in all tables.
const MaxFrameSize = 8

// Message is a single frame of the wire protocol.
type Message interface {
	// Opcode returns the leading byte identifying the message.
	Opcode() byte
	// AppendPayload appends the fixed-size payload.
	AppendPayload([]byte) []byte
}

// DecodeFunc decodes the payload which follows an opcode.
type DecodeFunc func(r io.ByteReader) (Message, error)

// Table maps the opcodes of one (peripheral, direction) pair to decoders.
type Table struct {
	Name string

	decoders map[byte]DecodeFunc
}

// NewTable creates an empty Table.
func NewTable(name string) *Table {
	return &Table{Name: name, decoders: make(map[byte]DecodeFunc)}
}

// Register adds a decoder. Registering the same opcode twice panics.
func (t *Table) Register(opcode byte, fn DecodeFunc) *Table {
	if _, exist := t.decoders[opcode]; exist {
		panic(fmt.Sprintf("%s: opcode 0x%02x registered twice", t.Name, opcode))
	}
	t.decoders[opcode] = fn
	return t
}

// Knows tells if the opcode is in the table.
func (t *Table) Knows(opcode byte) bool {
	_, ok := t.decoders[opcode]
	return ok
}

// Decode reads one message.
// It returns ErrNeedMoreBytes if r runs out of bytes before the frame
// completes, and a *DecodeError if the frame is malformed.
func (t *Table) Decode(r io.ByteReader) (Message, error) {
	opcode, err := readByte(r)
	if err != nil {
		return nil, err
	}
	fn, ok := t.decoders[opcode]
	if !ok {
		return nil, &DecodeError{Table: t.Name, Opcode: opcode, Err: ErrUnknownOpcode}
	}
	msg, err := fn(r)
	switch err {
	case nil:
		return msg, nil
	case ErrNeedMoreBytes:
		return nil, err
	}
	return nil, &DecodeError{Table: t.Name, Opcode: opcode, Err: err}
}

// Encode returns the frame of a message.
func Encode(msg Message) []byte {
	return Append(make([]byte, 0, MaxFrameSize), msg)
}

// Append appends the frame of a message to dst.
func Append(dst []byte, msg Message) []byte {
	return msg.AppendPayload(append(dst, msg.Opcode()))
}

func readByte(r io.ByteReader) (byte, error) {
	b, err := r.ReadByte()
	if err == io.EOF {
		return 0, ErrNeedMoreBytes
	}
	return b, err
}

func noPayload(msg Message) DecodeFunc {
	return func(io.ByteReader) (Message, error) {
		return msg, nil
	}
}
