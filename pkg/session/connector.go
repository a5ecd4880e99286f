package session

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/netinspect/netinspect/pkg/inventory"
	"github.com/netinspect/netinspect/pkg/profile"
)

// Retry policy: a fixed budget with fixed spacing, applied uniformly to all
// failure kinds. No backoff growth.
const (
	maxConnectAttempts = 5
	connectRetryDelay  = 500 * time.Millisecond
)

// DialFunc performs one connection attempt and returns an authenticated,
// elevated, ready-to-command session.
type DialFunc func(dev inventory.Device, prof profile.Profile) (Session, error)

// Connector produces ready sessions for device descriptors. Every attempt is
// a fresh connection; a half-established session is never reused.
type Connector struct {
	registry *profile.Registry
	logger   zerolog.Logger

	// dial and sleep are replaceable for tests.
	dial  DialFunc
	sleep func(time.Duration)
}

// NewConnector builds a connector over the given vendor registry. The
// registry is treated as immutable; the connector only reads it.
func NewConnector(registry *profile.Registry, logger zerolog.Logger) *Connector {
	c := &Connector{
		registry: registry,
		logger:   logger,
		sleep:    time.Sleep,
	}
	c.dial = c.dialOnce
	return c
}

// Connect dispatches on protocol and vendor profile and retries up to the
// attempt budget. Exhaustion is an ordinary returned value; it never aborts
// sibling devices.
func (c *Connector) Connect(dev inventory.Device) (Session, *ConnError) {
	prof, ok := c.registry.Lookup(dev.Profile)
	if !ok {
		return nil, &ConnError{
			Host: dev.Host,
			Kind: FailureGeneric,
			Err:  fmt.Errorf("unknown vendor profile %q", dev.Profile),
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		if attempt > 1 {
			c.sleep(connectRetryDelay)
		}
		sess, err := c.dial(dev, prof)
		if err == nil {
			c.logger.Info().Str("host", dev.Host).Int("attempt", attempt).Msg("device connected")
			return sess, nil
		}
		lastErr = err
		c.logger.Error().
			Str("host", dev.Host).
			Int("attempt", attempt).
			Str("kind", KindOf(err).String()).
			Err(err).
			Msg("connection attempt failed")
	}

	return nil, &ConnError{
		Host:     dev.Host,
		Kind:     KindOf(lastErr),
		Attempts: maxConnectAttempts,
		Err:      lastErr,
	}
}

// dialOnce performs one real connection attempt: legacy telnet profiles go
// through the raw login state machine, everything else through a managed
// session parameterized by the vendor profile.
func (c *Connector) dialOnce(dev inventory.Device, prof profile.Profile) (Session, error) {
	if prof.LegacyTelnet && dev.Protocol == inventory.ProtocolTelnet {
		return DialLegacyTelnet(dev, c.logger)
	}

	var (
		rw  io.ReadWriteCloser
		err error
	)
	switch dev.Protocol {
	case inventory.ProtocolTelnet:
		rw, err = dialTelnet(dev.Host, dev.Port, dev.Timeout)
	default:
		rw, err = dialSSH(dev.Host, dev.Port, dev.Username, dev.Password, dev.Timeout)
	}
	if err != nil {
		return nil, err
	}

	m := newManagedSession(dev, prof, rw, c.logger)
	if err := m.login(); err != nil {
		m.Close()
		return nil, err
	}
	if err := c.elevate(m, dev, prof); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// elevate enters privileged mode when the base prompt indicates an
// unprivileged session and a secret is available. The cisco family first
// tries elevation without a secret and falls back to the secret on failure.
func (c *Connector) elevate(m *ManagedSession, dev inventory.Device, prof profile.Profile) error {
	if dev.Secret == "" || prof.EnableCommand == "" {
		return nil
	}
	if !strings.HasSuffix(m.Prompt(), ">") {
		return nil
	}

	if prof.EnableNoSecretFirst {
		if err := m.Enable(""); err == nil {
			c.logger.Info().Str("host", dev.Host).Msg("privileged mode entered without secret")
			return nil
		}
		if err := m.Enable(dev.Secret); err != nil {
			return err
		}
		c.logger.Info().Str("host", dev.Host).Msg("privileged mode entered with secret")
		return nil
	}
	return m.Enable(dev.Secret)
}
