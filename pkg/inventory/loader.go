package inventory

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/netinspect/netinspect/pkg/profile"
)

// commandSplitRe splits a raw command cell on the separators the inventory
// format allows: semicolon, comma, pipe and newline.
var commandSplitRe = regexp.MustCompile(`[;,\n|]`)

// File is the on-disk inventory document.
//
// Scalar fields are declared as `any` so operators can write ports and
// timeouts either quoted or bare; coercion happens during resolution and bad
// values fall back to defaults with a logged warning instead of failing the
// whole file.
type File struct {
	Devices []Row `yaml:"devices"`

	// SharedCommands maps a brand or profile ID to a command list that
	// devices opt into with use_shared_commands.
	SharedCommands map[string]string `yaml:"shared_commands"`
}

// Row is one device entry as written by the operator.
type Row struct {
	Host     string `yaml:"host"`
	Brand    string `yaml:"brand"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Secret   string `yaml:"enable_secret"`
	Protocol string `yaml:"protocol"`
	Port     any    `yaml:"port"`
	Timeout  any    `yaml:"timeout"`

	// UseSharedCommands merges the brand's shared command list in front of
	// the row's own commands.
	UseSharedCommands bool   `yaml:"use_shared_commands"`
	Commands          string `yaml:"commands"`
}

// SplitCommands breaks a raw command cell into trimmed, non-empty commands.
func SplitCommands(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range commandSplitRe.Split(raw, -1) {
		if cmd := strings.TrimSpace(part); cmd != "" {
			out = append(out, cmd)
		}
	}
	return out
}

// Load reads the inventory file and resolves every row into a Device.
// Invalid rows are skipped with a warning; only an unreadable or unparsable
// file is an error.
func Load(path string, reg *profile.Registry, logger zerolog.Logger) ([]Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}

	var doc File
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	return Resolve(&doc, reg, logger), nil
}

// Resolve turns the parsed document into fully resolved devices.
func Resolve(doc *File, reg *profile.Registry, logger zerolog.Logger) []Device {
	devices := make([]Device, 0, len(doc.Devices))
	for i, row := range doc.Devices {
		dev, ok := resolveRow(i, row, doc.SharedCommands, reg, logger)
		if !ok {
			continue
		}
		devices = append(devices, dev)
	}
	return devices
}

func resolveRow(idx int, row Row, shared map[string]string, reg *profile.Registry, logger zerolog.Logger) (Device, bool) {
	rowLog := logger.With().Int("row", idx+1).Str("host", row.Host).Logger()

	var missing []string
	if row.Host == "" {
		missing = append(missing, "host")
	}
	if row.Brand == "" {
		missing = append(missing, "brand")
	}
	if row.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		rowLog.Warn().Strs("missing", missing).Msg("inventory row missing required fields, skipping")
		return Device{}, false
	}

	prof, ok := reg.Lookup(row.Brand)
	if !ok {
		rowLog.Warn().Str("brand", row.Brand).Msg("unknown device brand, skipping")
		return Device{}, false
	}

	proto := Protocol(strings.ToLower(strings.TrimSpace(row.Protocol)))
	switch proto {
	case ProtocolSSH, ProtocolTelnet:
	case "":
		proto = ProtocolSSH
	default:
		rowLog.Warn().Str("protocol", row.Protocol).Msg("invalid login protocol, falling back to ssh")
		proto = ProtocolSSH
	}

	port := proto.DefaultPort()
	if row.Port != nil {
		if v, err := cast.ToIntE(row.Port); err == nil && v > 0 {
			port = v
		} else {
			rowLog.Warn().Interface("port", row.Port).Int("fallback", port).Msg("invalid port, using protocol default")
		}
	}

	timeout := DefaultTimeout
	if row.Timeout != nil {
		if v, err := cast.ToIntE(row.Timeout); err == nil && v > 0 {
			timeout = time.Duration(v) * time.Second
		} else {
			rowLog.Warn().Interface("timeout", row.Timeout).Dur("fallback", timeout).Msg("invalid timeout, using default")
		}
	}

	var commands []string
	if row.UseSharedCommands {
		raw, ok := shared[row.Brand]
		if !ok {
			raw = shared[prof.ID]
		}
		commands = append(commands, SplitCommands(raw)...)
	}
	commands = append(commands, SplitCommands(row.Commands)...)

	return Device{
		Host:     row.Host,
		Port:     port,
		Username: row.Username,
		Password: row.Password,
		Secret:   row.Secret,
		Profile:  prof.ID,
		Protocol: proto,
		Timeout:  timeout,
		Commands: commands,
	}, true
}
