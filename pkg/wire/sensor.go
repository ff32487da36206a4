package wire

import "io"

// Sensor opcodes.
const (
	OpRead        byte = 0xbe
	OpTemperature byte = 0xef
)

// Read requests a new measurement.
type Read struct{}

// Opcode implements Message.
func (Read) Opcode() byte { return OpRead }

// AppendPayload implements Message.
func (Read) AppendPayload(b []byte) []byte { return b }

// Temperature carries a measurement.
type Temperature struct {
	Value Celsius
}

// Opcode implements Message.
func (Temperature) Opcode() byte { return OpTemperature }

// AppendPayload implements Message.
func (m Temperature) AppendPayload(b []byte) []byte { return append(b, byte(m.Value)) }

func decodeTemperature(r io.ByteReader) (Message, error) {
	b, err := readByte(r)
	if err != nil {
		return nil, err
	}
	return Temperature{Value: Celsius(int8(b))}, nil
}

var (
	// SensorCommands decodes messages sent to the sensor.
	SensorCommands = NewTable("sensor.commands").
		Register(OpRead, noPayload(Read{}))
	// SensorReplies decodes messages received from the sensor.
	SensorReplies = NewTable("sensor.replies").
		Register(OpTemperature, decodeTemperature)
)
