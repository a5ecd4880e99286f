package session

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// Sentinel errors the connection and command paths wrap so callers can
// classify failures with errors.Is.
var (
	// ErrAuthFailed marks rejected credentials, at login or elevation.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrReadTimeout marks a read that did not see its sentinel within the
	// allowed window.
	ErrReadTimeout = errors.New("timed out waiting for device output")
)

// FailureKind is the connection failure taxonomy. All kinds are retried
// uniformly by the connector; the kind is kept for logging and artifacts.
type FailureKind int

const (
	FailureGeneric FailureKind = iota
	FailureAuth
	FailureTimeout
)

func (k FailureKind) String() string {
	switch k {
	case FailureAuth:
		return "auth"
	case FailureTimeout:
		return "timeout"
	default:
		return "generic"
	}
}

// KindOf classifies an attempt error into the failure taxonomy.
func KindOf(err error) FailureKind {
	switch {
	case errors.Is(err, ErrAuthFailed):
		return FailureAuth
	case errors.Is(err, ErrReadTimeout), os.IsTimeout(err), isNetTimeout(err):
		return FailureTimeout
	default:
		return FailureGeneric
	}
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ConnError is the terminal result of an exhausted connection attempt
// budget. It is an ordinary value, not a panic: a failed device resolves to
// a ConnError and never aborts sibling devices.
type ConnError struct {
	Host     string
	Kind     FailureKind
	Attempts int
	Err      error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("connect %s: %s failure after %d attempts: %v", e.Host, e.Kind, e.Attempts, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }
