// Package env provides facts about the host the supervisor runs on.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves the unique ID identifying the machine.
// The ID is hashed with the application name so the raw machine ID is
// never published.
func MachineID(app string) (string, error) {
	return machineid.ProtectedID(app)
}

// InstanceID returns a short stable name for this host, falling back to
// the hostname when the machine ID is unavailable.
func InstanceID(app string) string {
	if id, err := MachineID(app); err == nil && len(id) >= 12 {
		return id[:12]
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}
