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
	"github.com/netinspect/netinspect/pkg/profile"
)

var (
	// basePromptRe detects a shell-ready sentinel before the base prompt
	// is known.
	basePromptRe = regexp.MustCompile(`[>#]`)

	// Managed telnet login dialogue prompts vary slightly by vendor.
	managedLoginRe    = regexp.MustCompile(`(?i)(login|username)\s*[:：]`)
	managedPasswordRe = regexp.MustCompile(`(?i)password\s*[:：]`)

	// enableReplyRe matches either a secret prompt or a returned shell
	// prompt after an elevation command.
	enableReplyRe = regexp.MustCompile(`(?i)password\s*[:：]|[>#]`)

	promptCleanRe = regexp.MustCompile(`[\r\n]+`)
)

// managedLoginTimeout bounds each step of the managed telnet login dialogue.
const managedLoginTimeout = 5 * time.Second

// ManagedSession drives a device whose vendor profile the session layer
// understands: it detects and normalizes the base prompt, disables
// pagination, performs privilege elevation, and reads command output up to
// the detected prompt.
type ManagedSession struct {
	dev     inventory.Device
	prof    profile.Profile
	rw      io.ReadWriteCloser
	reader  *streamReader
	logger  zerolog.Logger
	sleep   func(time.Duration)
	prompt  string
	readyRe *regexp.Regexp
}

func newManagedSession(dev inventory.Device, prof profile.Profile, rw io.ReadWriteCloser, logger zerolog.Logger) *ManagedSession {
	return &ManagedSession{
		dev:     dev,
		prof:    prof,
		rw:      rw,
		reader:  newStreamReader(rw),
		logger:  logger.With().Str("host", dev.Host).Str("profile", prof.ID).Logger(),
		sleep:   time.Sleep,
		readyRe: basePromptRe,
	}
}

// login completes authentication (for telnet transports), normalizes the
// base prompt and disables pagination.
func (m *ManagedSession) login() error {
	if m.dev.Protocol == inventory.ProtocolTelnet {
		if err := m.telnetLogin(); err != nil {
			return err
		}
	}
	if err := m.setBasePrompt(); err != nil {
		return err
	}
	if m.prof.DisablePaging != "" {
		if err := m.disablePaging(); err != nil {
			return err
		}
	}
	return nil
}

// telnetLogin answers the username/password dialogue of a managed telnet
// endpoint. SSH transports authenticate during the handshake instead.
func (m *ManagedSession) telnetLogin() error {
	if _, err := m.reader.readUntil(managedLoginRe, managedLoginTimeout); err != nil {
		return fmt.Errorf("waiting for login prompt: %w", err)
	}
	if err := m.SendLine(m.dev.Username); err != nil {
		return fmt.Errorf("send username: %w", err)
	}
	if _, err := m.reader.readUntil(managedPasswordRe, managedLoginTimeout); err != nil {
		return fmt.Errorf("waiting for password prompt: %w", err)
	}
	if err := m.SendLine(m.dev.Password); err != nil {
		return fmt.Errorf("send password: %w", err)
	}
	return nil
}

// setBasePrompt wakes the shell with a blank line and records the prompt it
// answers with. Embedded line breaks are stripped so the prompt is a single
// clean token usable for echo-stripping later.
func (m *ManagedSession) setBasePrompt() error {
	if err := m.SendLine(""); err != nil {
		return fmt.Errorf("wake shell: %w", err)
	}
	out, err := m.reader.readUntil(basePromptRe, m.dev.Timeout)
	if err != nil {
		if strings.Contains(out, legacyAuthFailed) || managedPasswordRe.MatchString(out) {
			return fmt.Errorf("%w: device rejected credentials", ErrAuthFailed)
		}
		return fmt.Errorf("detect prompt: %w", err)
	}

	prompt := lastLine(out)
	prompt = promptCleanRe.ReplaceAllString(prompt, "")
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("detect prompt: empty prompt from device")
	}
	m.setPrompt(prompt)
	m.logger.Debug().Str("prompt", prompt).Msg("base prompt detected")
	return nil
}

func (m *ManagedSession) setPrompt(prompt string) {
	m.prompt = prompt
	token := strings.TrimRight(prompt, ">#")
	if token == "" {
		m.readyRe = basePromptRe
		return
	}
	m.readyRe = regexp.MustCompile(regexp.QuoteMeta(token) + `[>#]`)
}

// disablePaging sends the profile's pager-off command and discards its echo
// so later reads never stop at a paging interrupt.
func (m *ManagedSession) disablePaging() error {
	if err := m.SendLine(m.prof.DisablePaging); err != nil {
		return fmt.Errorf("disable paging: %w", err)
	}
	m.sleep(settleAfterPaging)
	if _, err := m.reader.readUntil(m.readyRe, m.dev.Timeout); err != nil && !errors.Is(err, ErrReadTimeout) {
		return fmt.Errorf("disable paging: %w", err)
	}
	return nil
}

// Enable elevates privilege. With an empty secret it expects the device to
// elevate without a password challenge; a challenge with no secret to offer
// is an authentication failure.
func (m *ManagedSession) Enable(secret string) error {
	if err := m.SendLine(m.prof.EnableCommand); err != nil {
		return fmt.Errorf("send %q: %w", m.prof.EnableCommand, err)
	}
	out, err := m.reader.readUntil(enableReplyRe, managedLoginTimeout)
	if err != nil {
		return fmt.Errorf("privilege elevation: %w", err)
	}

	if managedPasswordRe.MatchString(out) {
		if secret == "" {
			return fmt.Errorf("%w: privilege elevation requires a secret", ErrAuthFailed)
		}
		if err := m.SendLine(secret); err != nil {
			return fmt.Errorf("send secret: %w", err)
		}
		out, err = m.reader.readUntil(basePromptRe, managedLoginTimeout)
		if err != nil {
			return fmt.Errorf("%w: privilege secret rejected", ErrAuthFailed)
		}
	}

	prompt := strings.TrimSpace(promptCleanRe.ReplaceAllString(lastLine(out), ""))
	if !strings.HasSuffix(prompt, "#") {
		return fmt.Errorf("%w: still unprivileged after elevation", ErrAuthFailed)
	}
	m.setPrompt(prompt)
	return nil
}

// SendLine writes one CRLF-terminated line.
func (m *ManagedSession) SendLine(line string) error {
	_, err := io.WriteString(m.rw, line+"\r\n")
	return err
}

// SendCommand issues a command and reads until the base prompt returns.
// Unlike the legacy path, a timed-out read is a command failure: the device
// never came back to its prompt.
func (m *ManagedSession) SendCommand(cmd string) (string, error) {
	if err := m.SendLine(cmd); err != nil {
		return "", fmt.Errorf("send %q: %w", cmd, err)
	}
	m.sleep(settleAfterCommand)
	out, err := m.reader.readUntil(m.readyRe, m.dev.Timeout)
	if err != nil {
		return out, fmt.Errorf("read %q output: %w", cmd, err)
	}
	return out, nil
}

// ReadUntilPrompt reads until the base prompt appears.
func (m *ManagedSession) ReadUntilPrompt(timeout time.Duration) (string, error) {
	return m.reader.readUntil(m.readyRe, timeout)
}

// Prompt returns the normalized base prompt, e.g. "router1>" or "<core-1>".
func (m *ManagedSession) Prompt() string { return m.prompt }

// Close releases the reader and the underlying transport.
func (m *ManagedSession) Close() error {
	m.reader.stop()
	return m.rw.Close()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, " \r\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
