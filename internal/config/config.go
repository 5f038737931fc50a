// Package config handles ehrstore configuration files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/roach88/ehrstore/internal/ir"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "ehrstore.toml"

// Config represents the ehrstore configuration.
//
// Every field is optional; command-line flags override file values.
type Config struct {
	// Database is the SQLite database path.
	Database string `toml:"database"`

	// Queries is the directory holding CUE query definitions.
	Queries string `toml:"queries"`

	// SystemID is embedded in every composition version uid.
	SystemID string `toml:"system_id"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// Explain collects the SQLite query plan for every query.
	Explain bool `toml:"explain"`

	// Telemetry configures trace export.
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	// Endpoint is the OTLP gRPC collector address. Empty disables export.
	Endpoint string `toml:"endpoint"`

	// Service is the reported service name.
	Service string `toml:"service"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: "ehrstore.db",
		Queries:  "queries",
		SystemID: ir.DefaultSystemID,
		LogLevel: "info",
		Telemetry: TelemetryConfig{
			Service: "ehrstore",
		},
	}
}

// Load loads the configuration from path.
//
// An empty path looks for DefaultFile in the working directory and returns
// Default() if it does not exist. An explicit path must exist.
func Load(path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFile); os.IsNotExist(err) {
			return Default(), nil
		}
		path = DefaultFile
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from a specific path.
// Fields missing from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	config := Default()
	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if _, err := ParseLogLevel(config.LogLevel); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// ParseLogLevel converts a level name to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", level)
	}
}
