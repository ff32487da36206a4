package link

import (
	"fmt"
	"net/url"
	"strconv"

	"go.bug.st/serial"
)

// DefaultBaudRate is used when the serial URL doesn't specify baud.
const DefaultBaudRate = 115200

// SerialConn is a serial port link. It implements hal.Drainer through
// the port.
type SerialConn struct {
	serial.Port
	Path string
}

// OpenSerial opens a serial port in 8N1 mode.
func OpenSerial(path string, baudRate int) (*SerialConn, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	return &SerialConn{Port: port, Path: path}, nil
}

// Ports lists available serial ports.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

func serialParams(u *url.URL) (path string, baud int, err error) {
	if path = u.Path; path == "" {
		path = u.Opaque
	}
	if path == "" {
		return "", 0, fmt.Errorf("serial link %q: missing device path", u.String())
	}
	baud = DefaultBaudRate
	if val := u.Query().Get("baud"); val != "" {
		if baud, err = strconv.Atoi(val); err != nil || baud <= 0 {
			return "", 0, fmt.Errorf("serial link %q: invalid baud %q", u.String(), val)
		}
	}
	return path, baud, nil
}
