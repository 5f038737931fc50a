package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ehrstore.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFrom(t *testing.T) {
	path := writeConfig(t, `
database = "/var/lib/ehrstore/records.db"
queries = "/etc/ehrstore/queries"
system_id = "hospital.example"
log_level = "debug"
explain = true

[telemetry]
endpoint = "localhost:4317"
service = "ehrstore-test"
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ehrstore/records.db", cfg.Database)
	assert.Equal(t, "/etc/ehrstore/queries", cfg.Queries)
	assert.Equal(t, "hospital.example", cfg.SystemID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Explain)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, "ehrstore-test", cfg.Telemetry.Service)
}

func TestLoadFrom_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, `database = "other.db"`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	want := Default()
	want.Database = "other.db"
	assert.Equal(t, want, cfg)
}

func TestLoadFrom_Errors(t *testing.T) {
	tests := map[string]string{
		"syntax":      `database = `,
		"unknown key": `databse = "typo.db"`,
		"log level":   `log_level = "loud"`,
		"wrong type":  `explain = "yes"`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_DefaultFileAbsent(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_DefaultFilePresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(`system_id = "from.cwd"`), 0o644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from.cwd", cfg.SystemID)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "level %q", tt.in)
	}

	_, err := ParseLogLevel("trace")
	assert.Error(t, err)
}
