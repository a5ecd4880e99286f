// Package inventory loads and models the device inventory consumed by the
// inspection core. Devices handed to the core are fully resolved: vendor
// profile, protocol, port, timeout and command list are all settled here.
package inventory

import "time"

// Protocol selects the login transport for a device.
type Protocol string

const (
	ProtocolSSH    Protocol = "ssh"
	ProtocolTelnet Protocol = "telnet"
)

// DefaultPort returns the conventional port for the protocol.
func (p Protocol) DefaultPort() int {
	if p == ProtocolTelnet {
		return 23
	}
	return 22
}

// DefaultTimeout bounds connection establishment and per-read waits when the
// inventory does not specify one.
const DefaultTimeout = 30 * time.Second

// Device is a fully resolved descriptor for one device. It is constructed by
// the inventory loader and consumed read-only by the inspection core; no
// vendor-table lookups happen past this point beyond the profile registry.
type Device struct {
	Host     string
	Port     int
	Username string
	Password string

	// Secret is the privilege-elevation password. For legacy telnet
	// families it is sent at the secondary-password login stage instead.
	Secret string

	// Profile is the resolved vendor profile ID, e.g. "hp_comware".
	Profile string

	Protocol Protocol
	Timeout  time.Duration

	// Commands are executed strictly in this order.
	Commands []string
}
