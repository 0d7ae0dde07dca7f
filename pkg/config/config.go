// Package config loads harnesssync's application configuration.
//
// Sources are layered with koanf, later ones overriding earlier ones:
//
//  1. the embedded defaults (embedded/defaults.toml)
//  2. the first user config file that exists (TOML or YAML, by extension)
//  3. HARNESSSYNC_* environment variables, "__" separating sections
//  4. explicit overrides, typically from command-line flags
//
// The merged tree is decoded into Config with mapstructure hooks, so
// durations may be written as "3s" and lists as comma separated strings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables read into the configuration.
const EnvPrefix = "HARNESSSYNC_"

// Config is the resolved application configuration.
type Config struct {
	Backup  BackupConfig            `koanf:"backup" json:"backup" yaml:"backup" toml:"backup"`
	Sync    SyncConfig              `koanf:"sync" json:"sync" yaml:"sync" toml:"sync"`
	Lock    LockConfig              `koanf:"lock" json:"lock" yaml:"lock" toml:"lock"`
	Secrets SecretsConfig           `koanf:"secrets" json:"secrets" yaml:"secrets" toml:"secrets"`
	Targets map[string]TargetConfig `koanf:"targets" json:"targets" yaml:"targets" toml:"targets"`

	// Source is the user config file that was loaded, if any.
	Source string `koanf:"-" json:"-" yaml:"-" toml:"-"`
}

type BackupConfig struct {
	Keep int `koanf:"keep" json:"keep" yaml:"keep" toml:"keep"`
}

type SyncConfig struct {
	Debounce time.Duration `koanf:"debounce" json:"debounce" yaml:"debounce" toml:"debounce"`
	Scope    string        `koanf:"scope" json:"scope" yaml:"scope" toml:"scope"`
}

type LockConfig struct {
	Wait time.Duration `koanf:"wait" json:"wait" yaml:"wait" toml:"wait"`
}

// SecretsConfig tunes the secret scanner's heuristics.
type SecretsConfig struct {
	Keywords     []string `koanf:"keywords" json:"keywords" yaml:"keywords" toml:"keywords"`
	SafePrefixes []string `koanf:"safe_prefixes" json:"safe_prefixes" yaml:"safe_prefixes" toml:"safe_prefixes"`
	MinLength    int      `koanf:"min_length" json:"min_length" yaml:"min_length" toml:"min_length"`
}

// TargetConfig describes one target CLI's footprint in a project.
type TargetConfig struct {
	SymlinkDirs []string `koanf:"symlink_dirs" json:"symlink_dirs" yaml:"symlink_dirs" toml:"symlink_dirs"`
	Artifacts   []string `koanf:"artifacts" json:"artifacts" yaml:"artifacts" toml:"artifacts"`
}

// Load builds the configuration from the defaults, the first existing file
// in files, the environment and overrides. overrides uses dotted keys such
// as "sync.scope" and may be nil.
func Load(files []string, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	source, err := loadFirstFile(k, files)
	if err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment")
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}
	cfg.Source = source

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the embedded defaults alone.
func Default() *Config {
	cfg, err := Load(nil, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded defaults are invalid: %v", err))
	}
	return cfg
}

func loadFirstFile(k *koanf.Koanf, files []string) (string, error) {
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			continue
		}

		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			parser = toml.Parser()
		case ".yaml", ".yml":
			parser = yaml.Parser()
		default:
			return "", errors.Newf(errors.ErrConfigParse, "unsupported config format: %s", path)
		}

		if err := k.Load(file.Provider(path), parser); err != nil {
			return "", errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", path).
				WithDetail("path", path)
		}
		return path, nil
	}
	return "", nil
}

// envKey maps HARNESSSYNC_SECRETS__MIN_LENGTH to secrets.min_length.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate checks value ranges the rest of the program relies on.
func (c *Config) Validate() error {
	invalid := func(key string, format string, args ...interface{}) error {
		return errors.Newf(errors.ErrConfigValid, "%s: %s", key, fmt.Sprintf(format, args...)).
			WithDetail("key", key)
	}

	if c.Backup.Keep < 1 {
		return invalid("backup.keep", "must be at least 1, got %d", c.Backup.Keep)
	}
	if c.Sync.Debounce < 0 {
		return invalid("sync.debounce", "must not be negative")
	}
	if _, err := types.ParseScopeFilter(c.Sync.Scope); err != nil {
		return invalid("sync.scope", "%v", err)
	}
	if c.Lock.Wait < 0 {
		return invalid("lock.wait", "must not be negative")
	}
	if c.Secrets.MinLength < 1 {
		return invalid("secrets.min_length", "must be at least 1, got %d", c.Secrets.MinLength)
	}
	if len(c.Secrets.Keywords) == 0 {
		return invalid("secrets.keywords", "must not be empty")
	}
	return nil
}

// ScopeFilter returns the parsed sync.scope value.
func (c *Config) ScopeFilter() types.ScopeFilter {
	f, _ := types.ParseScopeFilter(c.Sync.Scope)
	return f
}

// TargetNames lists the configured targets in lexical order.
func (c *Config) TargetNames() []string {
	return types.SortedNames(c.Targets)
}
