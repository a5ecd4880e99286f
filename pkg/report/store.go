// Package report persists inspection results as plain-text artifacts: one
// report file per successful device run and one error log per failed one.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

const (
	stampLayout = "20060102-150405"
	timeLayout  = "2006-01-02 15:04:05"

	errorsDirName = "errors"
	lockFileName  = ".netinspect.lock"
)

// unsafeNameRe matches characters that cannot appear in a directory name on
// common filesystems.
var unsafeNameRe = regexp.MustCompile(`[\\/*?:"<>|]`)

var blockSeparator = strings.Repeat("#", 40) + "\n"

// CommandResult pairs one executed command with its sanitized output.
type CommandResult struct {
	Command string
	Output  string
}

// Store writes report and error artifacts under a single result directory.
type Store struct {
	root   string
	logger zerolog.Logger
}

func NewStore(root string, logger zerolog.Logger) *Store {
	return &Store{root: root, logger: logger.With().Str("component", "report").Logger()}
}

// Root returns the result directory the store writes under.
func (s *Store) Root() string { return s.root }

// Init creates the result directory and its errors/ subdirectory. An
// unwritable result directory makes the whole run pointless, so the caller
// should abort on error.
func (s *Store) Init() error {
	if err := os.MkdirAll(filepath.Join(s.root, errorsDirName), 0o755); err != nil {
		return fmt.Errorf("create result directory: %w", err)
	}
	return nil
}

// SafeName replaces filesystem-hostile characters in a device name with
// underscores.
func SafeName(name string) string {
	return unsafeNameRe.ReplaceAllString(name, "_")
}

// WriteReport renders one device report and returns its path. The report
// lives in a per-device directory keyed by host and sanitized device name,
// with the inspection start time as file name.
func (s *Store) WriteReport(host, deviceName, protocol string, start time.Time, results []CommandResult) (string, error) {
	dir := filepath.Join(s.root, fmt.Sprintf("%s__%s", host, SafeName(deviceName)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create device directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("=== 设备巡检报告 ===\n")
	fmt.Fprintf(&b, "设备 IP: %s\n", host)
	fmt.Fprintf(&b, "设备名称: %s\n", deviceName)
	fmt.Fprintf(&b, "巡检时间: %s\n", start.Format(timeLayout))
	fmt.Fprintf(&b, "登录协议: %s\n", protocol)
	b.WriteString("=== 巡检命令输出 ===\n\n")
	for _, r := range results {
		b.WriteString(blockSeparator)
		fmt.Fprintf(&b, "--- 命令: %s ---\n", r.Command)
		fmt.Fprintf(&b, "%s\n\n", r.Output)
	}
	b.WriteString(blockSeparator)

	path := filepath.Join(dir, start.Format(stampLayout)+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	s.logger.Info().Str("host", host).Str("path", path).Msg("report written")
	return path, nil
}

// WriteError records a single-line failure description for a device and
// returns the artifact path.
func (s *Store) WriteError(host string, start time.Time, message string) (string, error) {
	path := filepath.Join(s.root, errorsDirName, fmt.Sprintf("%s_%s.error.log", host, start.Format(stampLayout)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create errors directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(message), 0o644); err != nil {
		return "", fmt.Errorf("write error artifact: %w", err)
	}
	s.logger.Error().Str("host", host).Str("path", path).Msg("error artifact written")
	return path, nil
}

// CleanOld removes all but the keep newest per-device directories, newest by
// modification time. The errors/ directory is never removed. A file lock on
// the result directory keeps concurrent runs from deleting under each other.
func (s *Store) CleanOld(keep int) error {
	if keep < 0 {
		keep = 0
	}
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return nil
	}

	lock := flock.New(filepath.Join(s.root, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock result directory: %w", err)
	}
	if !locked {
		s.logger.Warn().Str("dir", s.root).Msg("result directory locked by another run, skipping cleanup")
		return nil
	}
	defer lock.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("list result directory: %w", err)
	}

	type dirInfo struct {
		name    string
		modTime time.Time
	}
	var dirs []dirInfo
	for _, e := range entries {
		if !e.IsDir() || e.Name() == errorsDirName {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, dirInfo{name: e.Name(), modTime: info.ModTime()})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].modTime.After(dirs[j].modTime) })

	if keep > len(dirs) {
		keep = len(dirs)
	}
	for _, d := range dirs[keep:] {
		path := filepath.Join(s.root, d.name)
		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn().Str("dir", path).Err(err).Msg("failed to remove old report directory")
			continue
		}
		s.logger.Debug().Str("dir", path).Msg("old report directory removed")
	}
	return nil
}
