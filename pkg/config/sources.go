package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix namespaces the environment variables read by the env source.
const envPrefix = "NETINSPECT_"

// Source is one configuration layer. Lower priority loads first; later
// sources override earlier values key by key.
type Source interface {
	Name() string
	Priority() int
	Load(k *koanf.Koanf) error
}

// DefaultSources builds the standard chain: defaults, optional YAML file,
// environment, flags.
func DefaultSources(configFile string, flags *pflag.FlagSet) []Source {
	sources := []Source{
		defaultsSource{},
		envSource{},
	}
	if configFile != "" {
		sources = append(sources, fileSource{path: configFile, required: true})
	}
	if flags != nil {
		sources = append(sources, flagSource{flags: flags})
	}
	return sources
}

type defaultsSource struct{}

func (defaultsSource) Name() string  { return "defaults" }
func (defaultsSource) Priority() int { return 0 }

func (defaultsSource) Load(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(DefaultConfigAsMap(), "."), nil)
}

type fileSource struct {
	path     string
	required bool
}

func (s fileSource) Name() string { return fmt.Sprintf("file %s", s.path) }
func (fileSource) Priority() int  { return 10 }

func (s fileSource) Load(k *koanf.Koanf) error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if s.required {
			return fmt.Errorf("config file %s does not exist", s.path)
		}
		return nil
	}
	return k.Load(file.Provider(s.path), yaml.Parser())
}

type envSource struct{}

func (envSource) Name() string  { return "environment" }
func (envSource) Priority() int { return 20 }

// Load maps NETINSPECT_LOG_LEVEL to log.level. Only the first underscore
// becomes a separator: all config keys are two levels deep and leaf names
// themselves contain underscores (result_dir).
func (envSource) Load(k *koanf.Koanf) error {
	return k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	}), nil)
}

type flagSource struct {
	flags *pflag.FlagSet
}

func (flagSource) Name() string  { return "flags" }
func (flagSource) Priority() int { return 30 }

// Load merges flag values. Flag names use dashes where key leaves use
// underscores (--inspect.result-dir vs inspect.result_dir); the callback
// translates. Passing the koanf instance in makes posflag skip unchanged
// flags whose keys already have a value.
func (s flagSource) Load(k *koanf.Koanf) error {
	return k.Load(posflag.ProviderWithFlag(s.flags, ".", k, func(f *pflag.Flag) (string, any) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		return key, posflag.FlagVal(s.flags, f)
	}), nil)
}
