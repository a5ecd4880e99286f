// Package inspect runs the per-device inspection workflow: connect, identify
// the device, execute its command list, and persist the result artifact.
package inspect

import (
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/netinspect/netinspect/pkg/inventory"
	"github.com/netinspect/netinspect/pkg/profile"
	"github.com/netinspect/netinspect/pkg/report"
	"github.com/netinspect/netinspect/pkg/sanitize"
	"github.com/netinspect/netinspect/pkg/session"
)

// fallbackDeviceName is used when no prompt yields a usable name.
const fallbackDeviceName = "未知设备"

// Failure messages written to error artifacts. Kept stable: operators grep
// for them.
const (
	msgConnectFailed = "设备连接失败，无法获取设备名称。"
	msgInspectFailed = "巡检过程中发生错误: "
)

const (
	// legacyNameTimeout bounds the prompt read used to discover a legacy
	// device's name.
	legacyNameTimeout = 10 * time.Second

	// legacyWakeupSettle gives a legacy device time to answer the blank
	// wake-up line before the prompt read starts.
	legacyWakeupSettle = 500 * time.Millisecond
)

var (
	legacyNameRe  = regexp.MustCompile(`<\s*(\S+)\s*>`)
	managedNameRe = regexp.MustCompile(`^(\S+)[>#]`)
	sysnameRe     = regexp.MustCompile(`sysname (\S+)`)
)

// Connector yields ready sessions for devices. *session.Connector satisfies
// it; tests substitute fakes.
type Connector interface {
	Connect(dev inventory.Device) (session.Session, *session.ConnError)
}

// Outcome is the per-device result handed back to the dispatcher.
type Outcome struct {
	Host       string
	DeviceName string
	Success    bool

	// ReportPath is set on success, ErrorPath on failure. Artifact write
	// errors can leave both empty.
	ReportPath string
	ErrorPath  string

	Err error
}

// Executor inspects one device at a time. It is stateless across devices and
// safe for concurrent use by the dispatcher's workers.
type Executor struct {
	connector Connector
	registry  *profile.Registry
	store     *report.Store
	logger    zerolog.Logger

	// sleep and now are replaceable for tests.
	sleep func(time.Duration)
	now   func() time.Time
}

func NewExecutor(connector Connector, registry *profile.Registry, store *report.Store, logger zerolog.Logger) *Executor {
	return &Executor{
		connector: connector,
		registry:  registry,
		store:     store,
		logger:    logger.With().Str("component", "inspect").Logger(),
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// Inspect runs the full workflow for one device. Failures are recorded as
// error artifacts and reported in the Outcome; they never propagate as
// returned errors because one device's failure must not disturb its siblings.
func (e *Executor) Inspect(dev inventory.Device) Outcome {
	start := e.now()
	logger := e.logger.With().Str("host", dev.Host).Logger()

	sess, cerr := e.connector.Connect(dev)
	if cerr != nil {
		logger.Error().Err(cerr).Msg("device unreachable, skipping inspection")
		path, werr := e.store.WriteError(dev.Host, start, msgConnectFailed)
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error artifact")
		}
		return Outcome{Host: dev.Host, ErrorPath: path, Err: cerr}
	}
	defer sess.Close()

	name := e.deviceName(sess, dev, logger)

	results, err := e.runCommands(sess, dev, name)
	if err != nil {
		logger.Error().Err(err).Msg("inspection failed")
		path, werr := e.store.WriteError(dev.Host, start, msgInspectFailed+err.Error())
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error artifact")
		}
		return Outcome{Host: dev.Host, DeviceName: name, ErrorPath: path, Err: err}
	}

	path, err := e.store.WriteReport(dev.Host, name, string(dev.Protocol), start, results)
	if err != nil {
		logger.Error().Err(err).Msg("failed to write report")
		return Outcome{Host: dev.Host, DeviceName: name, Err: err}
	}

	logger.Info().Str("device", name).Str("report", path).Msg("inspection complete")
	return Outcome{Host: dev.Host, DeviceName: name, Success: true, ReportPath: path}
}

// deviceName discovers the device's own name. Managed sessions expose their
// base prompt; legacy sessions need a blank line and a live prompt read.
// Comware devices prefer the configured sysname because their prompt may be
// truncated. Name discovery never fails the inspection; the fallback name is
// always available.
func (e *Executor) deviceName(sess session.Session, dev inventory.Device, logger zerolog.Logger) string {
	name := fallbackDeviceName

	if prompt := sess.Prompt(); prompt != "" {
		if m := managedNameRe.FindStringSubmatch(prompt); m != nil {
			name = m[1]
		}
		if prof, ok := e.registry.Lookup(dev.Profile); ok && prof.SysnameCommand != "" {
			if sysname := e.lookupSysname(sess, prof.SysnameCommand); sysname != "" {
				name = sysname
			}
		}
		return name
	}

	// Legacy path: wake the shell and read up to the live prompt.
	if err := sess.SendLine(""); err != nil {
		logger.Warn().Err(err).Msg("failed to wake shell for name discovery")
		return name
	}
	e.sleep(legacyWakeupSettle)
	out, err := sess.ReadUntilPrompt(legacyNameTimeout)
	if err != nil {
		logger.Warn().Err(err).Msg("prompt read for name discovery failed")
	}
	if m := legacyNameRe.FindStringSubmatch(out); m != nil {
		name = m[1]
	}
	return name
}

// lookupSysname reads the configured system name. Errors are swallowed; the
// prompt-derived name remains in effect.
func (e *Executor) lookupSysname(sess session.Session, cmd string) string {
	out, err := sess.SendCommand(cmd)
	if err != nil {
		return ""
	}
	if m := sysnameRe.FindStringSubmatch(out); m != nil {
		return m[1]
	}
	return ""
}

// runCommands executes the device's command list in order. The first command
// error aborts the rest of the sequence; partial results are discarded.
func (e *Executor) runCommands(sess session.Session, dev inventory.Device, name string) ([]report.CommandResult, error) {
	results := make([]report.CommandResult, 0, len(dev.Commands))
	for _, cmd := range dev.Commands {
		raw, err := sess.SendCommand(cmd)
		if err != nil {
			return nil, err
		}
		results = append(results, report.CommandResult{
			Command: cmd,
			Output:  sanitize.Output([]byte(raw), cmd, name),
		})
	}
	return results, nil
}
