package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds the server configuration.
type Config struct {
	// Layout is the registry layout file. Empty uses the built-in layout.
	Layout string `yaml:"layout"`

	State StateConfig `yaml:"state"`

	// EventLog is the CBOR event log path. Empty disables the file log.
	EventLog string `yaml:"event_log"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// MetricsAddr is the listen address of the /metrics endpoint. Empty
	// disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	// Console runs an interactive console on the terminal.
	Console bool `yaml:"console"`

	Simulation SimulationConfig `yaml:"simulation"`
}

// StateConfig configures persistence.
type StateConfig struct {
	// Path is the state file. Empty disables persistence.
	Path string `yaml:"path"`

	// Interval is how often the registry is polled for changes.
	Interval time.Duration `yaml:"interval"`
}

// SimulationConfig configures simulated bus activity.
type SimulationConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		State: StateConfig{
			Interval: 2 * time.Second,
		},
		LogLevel: "info",
		Simulation: SimulationConfig{
			Interval: 500 * time.Millisecond,
		},
	}
}

// LoadConfig reads a YAML configuration over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.State.Path != "" && c.State.Interval <= 0 {
		return fmt.Errorf("state interval must be positive, got %s", c.State.Interval)
	}
	if c.Simulation.Enabled && c.Simulation.Interval <= 0 {
		return fmt.Errorf("simulation interval must be positive, got %s", c.Simulation.Interval)
	}
	return nil
}

// addServeFlags registers the flags that override the configuration file.
func addServeFlags(fs *pflag.FlagSet) {
	defaults := DefaultConfig()
	fs.StringP("layout", "l", "", "Registry layout file (YAML); built-in layout if empty")
	fs.String("state", "", "Persistent state file; persistence disabled if empty")
	fs.Duration("state-interval", defaults.State.Interval, "State change polling interval")
	fs.String("event-log", "", "CBOR event log file")
	fs.String("log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
	fs.String("metrics", "", "Metrics listen address, e.g. :9100")
	fs.Bool("console", false, "Run an interactive console")
	fs.Bool("simulate", false, "Simulate bit and position bus activity")
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cfg *Config, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "layout":
			cfg.Layout = f.Value.String()
		case "state":
			cfg.State.Path = f.Value.String()
		case "state-interval":
			cfg.State.Interval, _ = fs.GetDuration(f.Name)
		case "event-log":
			cfg.EventLog = f.Value.String()
		case "log-level":
			cfg.LogLevel = f.Value.String()
		case "metrics":
			cfg.MetricsAddr = f.Value.String()
		case "console":
			cfg.Console, _ = fs.GetBool(f.Name)
		case "simulate":
			cfg.Simulation.Enabled, _ = fs.GetBool(f.Name)
		}
	})
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
}

func newLogger(level string, w io.Writer) *slog.Logger {
	l, err := parseLevel(level)
	if err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
