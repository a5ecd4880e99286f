package session

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/netinspect/netinspect/pkg/inventory"
	"github.com/netinspect/netinspect/pkg/profile"
)

func newTestManagedSession(dev inventory.Device, prof profile.Profile, conn net.Conn) *ManagedSession {
	if dev.Timeout == 0 {
		dev.Timeout = 500 * time.Millisecond
	}
	m := newManagedSession(dev, prof, conn, zerolog.Nop())
	m.sleep = func(time.Duration) {}
	return m
}

func TestManagedLoginDetectsBasePrompt(t *testing.T) {
	client, server := net.Pipe()
	device := newScriptedDevice(server)

	go func() {
		device.recvLine() // wake-up blank line
		device.send("\r\nrouter1>")
	}()

	m := newTestManagedSession(
		inventory.Device{Host: "10.0.0.1", Protocol: inventory.ProtocolSSH},
		profile.Profile{ID: "cisco_ios"},
		client,
	)
	defer m.Close()

	require.NoError(t, m.login())
	require.Equal(t, "router1>", m.Prompt())
}

func TestManagedLoginDisablesPaging(t *testing.T) {
	client, server := net.Pipe()
	device := newScriptedDevice(server)

	go func() {
		device.recvLine()
		device.send("\r\nrouter1>")
		device.recvLine() // pagination-disable command
		device.send("terminal length 0\r\nrouter1>")
	}()

	m := newTestManagedSession(
		inventory.Device{Host: "10.0.0.1", Protocol: inventory.ProtocolSSH},
		profile.Profile{ID: "cisco_ios", DisablePaging: "terminal length 0"},
		client,
	)
	defer m.Close()

	require.NoError(t, m.login())
	require.Equal(t, []string{"", "terminal length 0"}, device.lines)
}

func TestManagedTelnetLoginDialogue(t *testing.T) {
	client, server := net.Pipe()
	device := newScriptedDevice(server)

	go func() {
		device.send("Username: ")
		device.recvLine()
		device.send("Password: ")
		device.recvLine()
		device.recvLine() // wake-up blank line
		device.send("\r\n<core-sw>")
	}()

	m := newTestManagedSession(
		inventory.Device{
			Host:     "10.0.0.2",
			Protocol: inventory.ProtocolTelnet,
			Username: "admin",
			Password: "hunter2",
		},
		profile.Profile{ID: "huawei"},
		client,
	)
	defer m.Close()

	require.NoError(t, m.login())
	require.Equal(t, "<core-sw>", m.Prompt())
	require.Equal(t, []string{"admin", "hunter2", ""}, device.lines)
}

func TestManagedLoginRejectedCredentials(t *testing.T) {
	client, server := net.Pipe()
	device := newScriptedDevice(server)

	go func() {
		device.send("Username: ")
		device.recvLine()
		device.send("Password: ")
		device.recvLine()
		device.recvLine()
		device.send("Authentication failed\r\n")
	}()

	m := newTestManagedSession(
		inventory.Device{
			Host:     "10.0.0.2",
			Protocol: inventory.ProtocolTelnet,
			Username: "admin",
			Password: "wrong",
		},
		profile.Profile{ID: "huawei"},
		client,
	)
	defer m.Close()

	err := m.login()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestManagedSendCommandReadsToPrompt(t *testing.T) {
	client, server := net.Pipe()
	device := newScriptedDevice(server)

	go func() {
		device.recvLine()
		device.send("\r\nrouter1>")
		device.recvLine()
		device.send("show version\r\nCisco IOS 15.1\r\nrouter1>")
	}()

	m := newTestManagedSession(
		inventory.Device{Host: "10.0.0.1", Protocol: inventory.ProtocolSSH},
		profile.Profile{ID: "cisco_ios"},
		client,
	)
	defer m.Close()

	require.NoError(t, m.login())

	out, err := m.SendCommand("show version")
	require.NoError(t, err)
	require.Contains(t, out, "Cisco IOS 15.1")
}

func TestManagedSendCommandTimeoutIsFailure(t *testing.T) {
	client, server := net.Pipe()
	device := newScriptedDevice(server)

	go func() {
		device.recvLine()
		device.send("\r\nrouter1>")
		device.recvLine()
		// Device never returns to its prompt.
	}()

	m := newTestManagedSession(
		inventory.Device{Host: "10.0.0.1", Protocol: inventory.ProtocolSSH},
		profile.Profile{ID: "cisco_ios"},
		client,
	)
	defer m.Close()

	require.NoError(t, m.login())

	_, err := m.SendCommand("show tech-support")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrReadTimeout)
}

func TestManagedEnableWithSecret(t *testing.T) {
	client, server := net.Pipe()
	device := newScriptedDevice(server)

	go func() {
		device.recvLine()
		device.send("\r\nrouter1>")
		device.recvLine() // enable
		device.send("Password: ")
		device.recvLine() // secret
		device.send("\r\nrouter1#")
	}()

	m := newTestManagedSession(
		inventory.Device{Host: "10.0.0.1", Protocol: inventory.ProtocolSSH},
		profile.Profile{ID: "cisco_ios", EnableCommand: "enable"},
		client,
	)
	defer m.Close()

	require.NoError(t, m.login())
	require.NoError(t, m.Enable("s3cret"))
	require.Equal(t, "router1#", m.Prompt())
	require.Equal(t, []string{"", "enable", "s3cret"}, device.lines)
}

func TestManagedEnableChallengeWithoutSecret(t *testing.T) {
	client, server := net.Pipe()
	device := newScriptedDevice(server)

	go func() {
		device.recvLine()
		device.send("\r\nrouter1>")
		device.recvLine()
		device.send("Password: ")
	}()

	m := newTestManagedSession(
		inventory.Device{Host: "10.0.0.1", Protocol: inventory.ProtocolSSH},
		profile.Profile{ID: "cisco_ios", EnableCommand: "enable"},
		client,
	)
	defer m.Close()

	require.NoError(t, m.login())

	err := m.Enable("")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAuthFailed)
}
