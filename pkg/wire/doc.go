// Package wire provides the peripheral wire protocol.
package wire

// The wire protocol is spoken between the supervisor and each peripheral
// (temperature sensor, pump) over a dedicated point-to-point byte link
// (e.g. serial port).
//
// A frame is one opcode byte followed by a fixed-size payload. There is
// no length field, no sequence number and no checksum: the payload size
// is implied by the opcode, and opcodes are scoped to a (peripheral,
// direction) pair, so the same value may appear in unrelated tables.
//
// Producer: supervisor (commands), peripherals (replies)
// Consumer: peripherals (commands), supervisor (replies)
