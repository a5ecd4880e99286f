// Package session establishes authenticated CLI sessions on network devices
// over SSH or Telnet and exposes them behind a single capability interface.
package session

import "time"

// Session is the capability surface the inspection executor drives. Managed
// sessions and the raw legacy-telnet session both implement it; the executor
// never needs to know which one it holds.
//
// A Session is owned by exactly one device task and must be closed on every
// exit path.
type Session interface {
	// SendLine writes one line, terminated for the device.
	SendLine(line string) error

	// SendCommand issues a command and captures everything up to the next
	// ready prompt.
	SendCommand(cmd string) (string, error)

	// ReadUntilPrompt reads until the ready sentinel appears or the
	// timeout expires.
	ReadUntilPrompt(timeout time.Duration) (string, error)

	// Prompt returns the base prompt detected at login. Legacy telnet
	// sessions return an empty string; their prompt is read on demand.
	Prompt() string

	// Close releases the underlying transport. Safe to call once on every
	// exit path.
	Close() error
}

// Settle delays inserted after writes so the device has flushed its response
// before the next read. Deliberate simplification in place of event-driven
// read synchronization; shortening them risks reading partial output.
const (
	settleAfterPaging  = 500 * time.Millisecond
	settleAfterCommand = 300 * time.Millisecond
)
