// Package config loads sysobserve settings. Values are layered: built-in
// defaults, then a YAML file, then SYSOBSERVE_* environment variables, then
// command line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sysobserve/internal/logging"
)

const (
	DefaultCoalesce  = 50 * time.Millisecond
	DefaultStopGrace = 2 * time.Second
	DefaultLogLevel  = "info"

	EnvLogLevel  = "SYSOBSERVE_LOG_LEVEL"
	EnvCoalesce  = "SYSOBSERVE_COALESCE"
	EnvStopGrace = "SYSOBSERVE_STOP_GRACE"
)

var ErrInvalidConfig = errors.New("invalid config")

type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

type Config struct {
	LogLevel  string        `yaml:"log_level"`
	Coalesce  time.Duration `yaml:"coalesce"`
	Recursive bool          `yaml:"recursive"`
	StopGrace time.Duration `yaml:"stop_grace"`
	Metrics   bool          `yaml:"metrics"`
	Child     Child         `yaml:"child"`
	Watch     []string      `yaml:"watch"`

	// Sources records where each top-level key was last set from.
	Sources map[string]Source `yaml:"-"`
}

// Child describes the process the run command launches.
type Child struct {
	Path string   `yaml:"path"`
	Args []string `yaml:"args"`
	Dir  string   `yaml:"dir"`
	PTY  bool     `yaml:"pty"`
}

func Default() Config {
	return Config{
		LogLevel:  DefaultLogLevel,
		Coalesce:  DefaultCoalesce,
		StopGrace: DefaultStopGrace,
		Sources: map[string]Source{
			"log_level":  SourceDefault,
			"coalesce":   SourceDefault,
			"stop_grace": SourceDefault,
		},
	}
}

// Load reads path (when non-empty) over the defaults and applies environment
// overrides. A missing file is an error only when path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := cfg.decode(payload); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decode(payload []byte) error {
	var keys map[string]yaml.Node
	if err := yaml.Unmarshal(payload, &keys); err != nil {
		return err
	}
	if err := yaml.Unmarshal(payload, c); err != nil {
		return err
	}
	for key := range keys {
		c.Sources[key] = SourceFile
	}
	return nil
}

func (c *Config) applyEnv() error {
	if raw := strings.TrimSpace(os.Getenv(EnvLogLevel)); raw != "" {
		c.LogLevel = raw
		c.Sources["log_level"] = SourceEnv
	}
	if raw := strings.TrimSpace(os.Getenv(EnvCoalesce)); raw != "" {
		value, err := parseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvCoalesce, err)
		}
		c.Coalesce = value
		c.Sources["coalesce"] = SourceEnv
	}
	if raw := strings.TrimSpace(os.Getenv(EnvStopGrace)); raw != "" {
		value, err := parseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvStopGrace, err)
		}
		c.StopGrace = value
		c.Sources["stop_grace"] = SourceEnv
	}
	return nil
}

// SetLogLevel applies a flag value over whatever was loaded.
func (c *Config) SetLogLevel(level string) {
	c.LogLevel = level
	if c.Sources == nil {
		c.Sources = make(map[string]Source)
	}
	c.Sources["log_level"] = SourceFlag
}

func (c Config) Validate() error {
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.StopGrace < 0 {
		return fmt.Errorf("%w: stop_grace must not be negative", ErrInvalidConfig)
	}
	for i, path := range c.Watch {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("%w: watch[%d] is empty", ErrInvalidConfig, i)
		}
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() logging.Level {
	level, ok := logging.ParseLevel(c.LogLevel)
	if !ok {
		return logging.LevelInfo
	}
	return level
}

// parseDuration accepts Go duration strings and bare integers as milliseconds.
func parseDuration(raw string) (time.Duration, error) {
	if millis, err := strconv.Atoi(raw); err == nil {
		return time.Duration(millis) * time.Millisecond, nil
	}
	return time.ParseDuration(raw)
}
