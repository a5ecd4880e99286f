// Package config loads application configuration from layered sources:
// defaults, YAML file, environment, command-line flags.
package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config is the merged application configuration.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Inspect InspectConfig `koanf:"inspect"`
}

// LogConfig selects the log sink and verbosity.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// InspectConfig drives an inspection run.
type InspectConfig struct {
	// Inventory is the device inventory YAML path.
	Inventory string `koanf:"inventory"`

	// ResultDir receives per-device report directories and error logs.
	ResultDir string `koanf:"result_dir"`

	// Workers bounds concurrent device tasks. Zero means one per CPU.
	Workers int `koanf:"workers"`

	// KeepRuns is how many per-device report directories survive cleanup.
	KeepRuns int `koanf:"keep_runs"`

	// PingPrecheck enables the advisory echo probe before each task.
	PingPrecheck bool `koanf:"ping_precheck"`
}

// DefaultConfig returns the baseline configuration before any source is
// applied.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Inspect: InspectConfig{
			Inventory: "devices.yaml",
			ResultDir: "inspection_results",
			KeepRuns:  10,
		},
	}
}

// DefaultConfigAsMap flattens DefaultConfig for koanf's confmap provider so
// every key exists before higher-priority sources merge over it.
func DefaultConfigAsMap() map[string]any {
	def := DefaultConfig()
	return map[string]any{
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,
		"log.file":   def.Log.File,

		"inspect.inventory":     def.Inspect.Inventory,
		"inspect.result_dir":    def.Inspect.ResultDir,
		"inspect.workers":       def.Inspect.Workers,
		"inspect.keep_runs":     def.Inspect.KeepRuns,
		"inspect.ping_precheck": def.Inspect.PingPrecheck,
	}
}

// Manager loads and holds the merged configuration.
type Manager struct {
	k       *koanf.Koanf
	current Config
	mu      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{k: koanf.New(".")}
}

// Load merges the default source chain. Precedence, highest first:
//
//  1. Command-line flags (--log.level=debug)
//  2. Environment variables (NETINSPECT_LOG_LEVEL=debug)
//  3. Config file (YAML)
//  4. Defaults
func (m *Manager) Load(flags *pflag.FlagSet, configFile string) error {
	return m.LoadWithSources(DefaultSources(configFile, flags))
}

// LoadWithSources merges the given sources, lowest priority first, and
// unmarshals the result. Custom chains can insert extra sources.
func (m *Manager) LoadWithSources(sources []Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Priority() < sources[j].Priority()
	})

	for _, src := range sources {
		if err := src.Load(m.k); err != nil {
			return fmt.Errorf("load config from %s: %w", src.Name(), err)
		}
	}

	var cfg Config
	if err := m.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("unmarshal merged config: %w", err)
	}
	m.current = cfg
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// GetValue retrieves one merged value by key path, e.g. "inspect.workers".
// Returns nil for unknown keys.
func (m *Manager) GetValue(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.k.Get(key)
}

// BindFlags declares the flags that override configuration keys. Called when
// the cobra commands are set up; flag names mirror key paths so the posflag
// source can merge them without a mapping table.
func BindFlags(flags *pflag.FlagSet) {
	def := DefaultConfig()

	flags.String("log.level", def.Log.Level, "Log level (trace, debug, info, warn, error)")
	flags.String("log.format", def.Log.Format, "Log format (console, json)")
	flags.String("log.file", def.Log.File, "Duplicate logs into this file (JSON)")

	flags.String("inspect.result-dir", def.Inspect.ResultDir, "Directory for inspection reports")
	flags.Int("inspect.workers", def.Inspect.Workers, "Concurrent device tasks (0 = one per CPU)")
	flags.Int("inspect.keep-runs", def.Inspect.KeepRuns, "Old report directories to keep")
	flags.Bool("inspect.ping-precheck", def.Inspect.PingPrecheck, "Ping each host before inspecting it")
}
