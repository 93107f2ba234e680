// Package config loads engine settings from YAML.
//
//	frame_budget: 5ms
//	log_level: debug
//	journal: arbor.db
//	lanes:
//	  user_interactive: 100ms
//	  idle: never
//
// Unset fields keep their defaults. Lane timeouts are keyed by priority name;
// "never" disables expiration for that class.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/arbor/internal/engine"
	"github.com/roach88/arbor/internal/lane"
)

// Never is the Duration that disables lane expiration.
const Never Duration = -1

// Duration is a time.Duration read from strings like "250ms" or "never".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", value.Line, err)
	}
	if strings.EqualFold(s, "never") {
		*d = Never
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d Duration) String() string {
	if d < 0 {
		return "never"
	}
	return time.Duration(d).String()
}

// Config is the file form of the engine settings.
type Config struct {
	FrameBudget Duration            `yaml:"frame_budget"`
	LogLevel    string              `yaml:"log_level"`
	Journal     string              `yaml:"journal,omitempty"`
	Lanes       map[string]Duration `yaml:"lanes,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		FrameBudget: Duration(engine.DefaultFrameBudget),
		LogLevel:    "info",
	}
}

// Load reads path over the defaults. An empty file yields Default().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	if c.FrameBudget < 0 {
		return fmt.Errorf("frame_budget must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	for _, name := range c.laneNames() {
		p, err := lane.ParsePriority(name)
		if err != nil {
			return fmt.Errorf("lanes: %w", err)
		}
		if p == lane.PriorityImmediate {
			return fmt.Errorf("lanes.%s: immediate work always expires on submission", name)
		}
	}
	return nil
}

// Timeouts merges the configured lane timeouts into lane.DefaultTimeouts.
func (c Config) Timeouts() lane.Timeouts {
	t := lane.DefaultTimeouts()
	for name, d := range c.Lanes {
		if p, err := lane.ParsePriority(name); err == nil {
			t[p] = time.Duration(d)
		}
	}
	return t
}

// Level returns the slog level for LogLevel. Invalid levels map to Info;
// Validate reports them.
func (c Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// EngineOptions converts the settings into engine options. The journal is
// opened by the caller, which owns its lifetime.
func (c Config) EngineOptions() []engine.EngineOption {
	return []engine.EngineOption{
		engine.WithFrameBudget(time.Duration(c.FrameBudget)),
		engine.WithTimeouts(c.Timeouts()),
	}
}

func (c Config) laneNames() []string {
	names := make([]string, 0, len(c.Lanes))
	for name := range c.Lanes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q: must be one of debug, info, warn, error", s)
}
