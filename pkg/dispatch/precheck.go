package dispatch

import (
	"context"
	"time"

	probing "github.com/go-ping/ping"
	"github.com/rs/zerolog"
)

// precheckTimeout bounds one reachability probe. Short on purpose: the probe
// is advisory and must not delay the real connection attempt noticeably.
const precheckTimeout = 2 * time.Second

// Pinger sends one round of echo probes and reports whether any reply came
// back. The real implementation wraps go-ping; tests substitute fakes.
type Pinger interface {
	Ping(ctx context.Context, host string) (reachable bool, err error)
}

// icmpPinger probes with ICMP echo via go-ping. Unprivileged UDP mode, so it
// works without CAP_NET_RAW.
type icmpPinger struct{}

func (icmpPinger) Ping(ctx context.Context, host string) (bool, error) {
	p, err := probing.NewPinger(host)
	if err != nil {
		return false, err
	}
	p.SetPrivileged(false)
	p.Count = 1
	p.Timeout = precheckTimeout

	done := make(chan error, 1)
	go func() { done <- p.Run() }()
	select {
	case <-ctx.Done():
		p.Stop()
		<-done
		return false, ctx.Err()
	case err := <-done:
		if err != nil {
			return false, err
		}
	}
	return p.Statistics().PacketsRecv > 0, nil
}

// Precheck is a log-only reachability probe run before each inspection task.
// It never blocks or fails a task: a dead probe just produces a warning so
// the operator can tell "host down" from "login broken" without reading the
// connector's retry trail.
type Precheck struct {
	pinger Pinger
	logger zerolog.Logger
}

func NewPrecheck(logger zerolog.Logger) *Precheck {
	return &Precheck{
		pinger: icmpPinger{},
		logger: logger.With().Str("component", "precheck").Logger(),
	}
}

// Probe pings the host and logs the result. Always advisory.
func (p *Precheck) Probe(ctx context.Context, host string) {
	reachable, err := p.pinger.Ping(ctx, host)
	switch {
	case err != nil:
		p.logger.Warn().Str("host", host).Err(err).Msg("reachability probe failed")
	case !reachable:
		p.logger.Warn().Str("host", host).Msg("host did not answer echo probe")
	default:
		p.logger.Debug().Str("host", host).Msg("host reachable")
	}
}
