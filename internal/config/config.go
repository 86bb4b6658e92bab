package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"

	"github.com/TrishulMallur/EchoKey/internal/engine"
	"github.com/TrishulMallur/EchoKey/internal/snippets"
	"github.com/TrishulMallur/EchoKey/internal/stats"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "ECHOKEY_"

// Store backends.
const (
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// Config is the effective configuration: defaults, then the YAML file, then
// the environment.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Engine  EngineConfig  `yaml:"engine"`
	Stats   StatsConfig   `yaml:"stats"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Packs   PacksConfig   `yaml:"packs"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type EngineConfig struct {
	Prefix         string   `yaml:"prefix"`
	MaxBuffer      int      `yaml:"max_buffer"`
	MaxSuggestions int      `yaml:"max_suggestions"`
	Debounce       Duration `yaml:"debounce"`
}

type StatsConfig struct {
	FlushInterval Duration `yaml:"flush_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set.
	Addr string `yaml:"addr"`
}

type PacksConfig struct {
	// Dir holds pack files merged into the managed tier by "snippets import".
	Dir string `yaml:"dir"`
}

// Duration parses from strings like "50ms" or plain numbers of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return td, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("invalid duration value: %q", raw)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendPebble,
			Path:    DefaultStorePath(),
		},
		Engine: EngineConfig{
			Prefix:         snippets.DefaultPrefix,
			MaxBuffer:      engine.DefaultMaxBuffer,
			MaxSuggestions: engine.DefaultMaxSuggestions,
			Debounce:       Duration(engine.DefaultDebounce),
		},
		Stats: StatsConfig{FlushInterval: Duration(stats.DefaultFlushInterval)},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultStorePath is the store directory under the user's config directory,
// or a relative one when that cannot be determined.
func DefaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".echokey"
	}
	return filepath.Join(dir, "echokey", "store")
}

// LoadDotEnv loads environment variables from a .env file. A missing file is
// not an error; variables already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds the effective configuration. An empty path skips the file; a
// named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays ECHOKEY_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"STORE_BACKEND": &c.Store.Backend,
		"STORE_PATH":    &c.Store.Path,
		"PREFIX":        &c.Engine.Prefix,
		"LOG_LEVEL":     &c.Log.Level,
		"LOG_FORMAT":    &c.Log.Format,
		"METRICS_ADDR":  &c.Metrics.Addr,
		"PACKS_DIR":     &c.Packs.Dir,
	}
	for name, dst := range str {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_BUFFER":      &c.Engine.MaxBuffer,
		"MAX_SUGGESTIONS": &c.Engine.MaxSuggestions,
	}
	for name, dst := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
	}

	durations := map[string]*Duration{
		"DEBOUNCE":       &c.Engine.Debounce,
		"FLUSH_INTERVAL": &c.Stats.FlushInterval,
	}
	for name, dst := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = Duration(d)
	}
	return nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendPebble:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the pebble backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend must be %q or %q, got %q", BackendPebble, BackendMemory, c.Store.Backend))
	}
	if c.Engine.Prefix == "" || strings.IndexFunc(c.Engine.Prefix, unicode.IsSpace) >= 0 {
		errs = append(errs, fmt.Errorf("engine.prefix must be non-empty without whitespace, got %q", c.Engine.Prefix))
	}
	if c.Engine.MaxBuffer < 1 {
		errs = append(errs, fmt.Errorf("engine.max_buffer must be positive, got %d", c.Engine.MaxBuffer))
	}
	if c.Engine.MaxSuggestions < 1 {
		errs = append(errs, fmt.Errorf("engine.max_suggestions must be positive, got %d", c.Engine.MaxSuggestions))
	}
	if c.Engine.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("engine.debounce must be positive, got %s", c.Engine.Debounce))
	}
	if c.Stats.FlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("stats.flush_interval must be positive, got %s", c.Stats.FlushInterval))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// StorePath returns the path to hand to storage.Open: ":memory:" for the
// memory backend.
func (c *Config) StorePath() string {
	if c.Store.Backend == BackendMemory {
		return ":memory:"
	}
	return c.Store.Path
}
