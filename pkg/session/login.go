package session

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/netinspect/netinspect/pkg/inventory"
)

// Prompts and sentinels of the legacy telnet login dialogue. These devices
// use a fixed English dialogue regardless of locale.
const (
	legacyLoginPrompt     = "Login: "
	legacyPasswordPrompt  = "Password: "
	legacySecondaryPrompt = "Secondary Password: "
	legacyAuthFailed      = "Authentication failed"

	// legacyPromptTimeout bounds each AWAIT_* read of the login machine.
	legacyPromptTimeout = 5 * time.Second

	// legacyCommandTimeout bounds one command read. Generous because
	// pagination is disabled and large outputs arrive in one piece.
	legacyCommandTimeout = 30 * time.Second
)

// legacyReadyRe is the shell-ready sentinel of the legacy dialogue.
var legacyReadyRe = regexp.MustCompile(`>`)

// loginState enumerates the legacy telnet login machine.
type loginState int

const (
	stateAwaitLogin loginState = iota
	stateSendUsername
	stateAwaitPassword
	stateSendPassword
	stateAwaitSecondary
	stateSendSecondary
	stateAwaitReady
	stateReady
	stateAuthFailed
)

// RawTelnetSession drives devices that no managed profile covers: a raw
// telnet stream authenticated by the hand-rolled login state machine.
type RawTelnetSession struct {
	dev    inventory.Device
	rw     io.ReadWriteCloser
	reader *streamReader
	logger zerolog.Logger
	sleep  func(time.Duration)

	promptTimeout  time.Duration
	commandTimeout time.Duration
}

// DialLegacyTelnet connects, authenticates via the login state machine and
// returns a ready session. Privilege elevation happens inside the login
// dialogue (secondary password stage); the connector must not elevate again.
func DialLegacyTelnet(dev inventory.Device, logger zerolog.Logger) (*RawTelnetSession, error) {
	conn, err := dialTelnet(dev.Host, dev.Port, dev.Timeout)
	if err != nil {
		return nil, fmt.Errorf("telnet dial: %w", err)
	}
	s := newRawTelnetSession(dev, conn, logger)
	if err := s.login(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newRawTelnetSession(dev inventory.Device, rw io.ReadWriteCloser, logger zerolog.Logger) *RawTelnetSession {
	return &RawTelnetSession{
		dev:            dev,
		rw:             rw,
		reader:         newStreamReader(rw),
		logger:         logger.With().Str("host", dev.Host).Str("transport", "telnet-raw").Logger(),
		sleep:          time.Sleep,
		promptTimeout:  legacyPromptTimeout,
		commandTimeout: legacyCommandTimeout,
	}
}

// login walks the state machine to READY or a terminal failure.
func (s *RawTelnetSession) login() error {
	state := stateAwaitLogin
	var ready string

	for {
		switch state {
		case stateAwaitLogin:
			if err := s.expect(legacyLoginPrompt); err != nil {
				return err
			}
			state = stateSendUsername

		case stateSendUsername:
			if err := s.SendLine(s.dev.Username); err != nil {
				return fmt.Errorf("send username: %w", err)
			}
			state = stateAwaitPassword

		case stateAwaitPassword:
			if err := s.expect(legacyPasswordPrompt); err != nil {
				return err
			}
			state = stateSendPassword

		case stateSendPassword:
			if err := s.SendLine(s.dev.Password); err != nil {
				return fmt.Errorf("send password: %w", err)
			}
			if s.dev.Secret != "" {
				state = stateAwaitSecondary
			} else {
				state = stateAwaitReady
			}

		case stateAwaitSecondary:
			if err := s.expect(legacySecondaryPrompt); err != nil {
				return err
			}
			state = stateSendSecondary

		case stateSendSecondary:
			if err := s.SendLine(s.dev.Secret); err != nil {
				return fmt.Errorf("send secondary password: %w", err)
			}
			state = stateAwaitReady

		case stateAwaitReady:
			// The ready sentinel wins over the auth sentinel: banner text
			// mentioning "Authentication failed" must not sink a login
			// that reached its prompt.
			out, err := s.reader.readUntil(legacyReadyRe, s.promptTimeout)
			if err == nil {
				ready = out
				state = stateReady
				continue
			}
			if strings.Contains(out, legacyAuthFailed) {
				state = stateAuthFailed
				continue
			}
			if errors.Is(err, ErrReadTimeout) {
				return fmt.Errorf("waiting for ready prompt: %w", err)
			}
			return err

		case stateReady:
			s.logger.Debug().Str("banner", strings.TrimSpace(ready)).Msg("legacy telnet login complete")
			return nil

		case stateAuthFailed:
			return fmt.Errorf("%w: device rejected credentials", ErrAuthFailed)
		}
	}
}

// expect blocks until the literal prompt arrives, bounded by the per-prompt
// timeout.
func (s *RawTelnetSession) expect(prompt string) error {
	re := regexp.MustCompile(regexp.QuoteMeta(prompt))
	if _, err := s.reader.readUntil(re, s.promptTimeout); err != nil {
		if errors.Is(err, ErrReadTimeout) {
			return fmt.Errorf("waiting for %q: %w", prompt, err)
		}
		return err
	}
	return nil
}

// SendLine writes one CRLF-terminated line.
func (s *RawTelnetSession) SendLine(line string) error {
	_, err := io.WriteString(s.rw, line+"\r\n")
	return err
}

// SendCommand issues a command and reads until the ready sentinel. A read
// timeout is not an error here: pagination is disabled upstream, so whatever
// arrived before the deadline is the complete output the device produced.
func (s *RawTelnetSession) SendCommand(cmd string) (string, error) {
	if err := s.SendLine(cmd); err != nil {
		return "", fmt.Errorf("send %q: %w", cmd, err)
	}
	s.sleep(settleAfterCommand)
	out, err := s.reader.readUntil(legacyReadyRe, s.commandTimeout)
	if err != nil && !errors.Is(err, ErrReadTimeout) {
		return out, fmt.Errorf("read %q output: %w", cmd, err)
	}
	return out, nil
}

// ReadUntilPrompt reads until the ready sentinel appears.
func (s *RawTelnetSession) ReadUntilPrompt(timeout time.Duration) (string, error) {
	return s.reader.readUntil(legacyReadyRe, timeout)
}

// Prompt is empty for raw sessions; the executor reads the live prompt with
// a blank line instead.
func (s *RawTelnetSession) Prompt() string { return "" }

// Close releases the reader and the underlying connection.
func (s *RawTelnetSession) Close() error {
	s.reader.stop()
	return s.rw.Close()
}
