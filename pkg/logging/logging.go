// Package logging builds the process-wide logger. The core packages receive
// the logger as an injected dependency; nothing below the CLI reaches for a
// global.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects sink, format and level for the run.
type Options struct {
	// Level is one of trace, debug, info, warn, error. Defaults to info.
	Level string

	// Format is "console" or "json". Console output is human-oriented and
	// the default for interactive runs.
	Format string

	// File, when set, duplicates all log output into this path (always in
	// JSON, regardless of Format).
	File string
}

// New constructs the logger. The returned closer flushes and releases the
// file sink, if any, and must be called on process exit.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	var console io.Writer = os.Stderr
	if opts.Format != "json" {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	closer := func() error { return nil }
	writer := console
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		writer = zerolog.MultiLevelWriter(console, f)
		closer = f.Close
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

func parseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
