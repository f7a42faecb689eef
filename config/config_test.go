package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	p := writeConfig(t, `
[host]
type = "memory"
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Host.Type)
	assert.Equal(t, "utf8", cfg.FS.Encoding)
	assert.Equal(t, "info", cfg.Log.Level)

	ttl, err := cfg.Cache.TTLDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, ttl)
}

func TestLoadConfig_Full(t *testing.T) {
	p := writeConfig(t, `
[host]
type = "sftp"
root_path = "/upload"

[host.auth]
host = "files.example.com"
port = 22
user = "deploy"
password = "secret"

[fs]
encoding = "base64"
strict_encoding = true

[cache]
enabled = true
ttl = "5m"
refresh = "@every 1m"
file = "snapshot.json"

[log]
level = "debug"
format = "json"
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)

	require.NotNil(t, cfg.Host.Auth)
	assert.Equal(t, 22, cfg.Host.Auth.Port)
	assert.Equal(t, "/upload", cfg.Host.RootPath)
	assert.True(t, cfg.FS.StrictEncoding)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "@every 1m", cfg.Cache.Refresh)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"unknown host", func(c *Config) { c.Host.Type = "nfs" }, true},
		{"ftp without auth", func(c *Config) { c.Host.Type = "ftp" }, true},
		{"ftp with auth", func(c *Config) {
			c.Host.Type = "ftp"
			c.Host.Auth = &Auth{Host: "h", Port: 21}
		}, false},
		{"minio without bucket", func(c *Config) {
			c.Host.Type = "minio"
			c.Host.MinIO = &MinIO{Endpoint: "localhost:9000"}
		}, true},
		{"bad ttl", func(c *Config) { c.Cache.TTL = "soon" }, true},
		{"negative ttl", func(c *Config) { c.Cache.TTL = "-1s" }, true},
		{"bad cron", func(c *Config) { c.Cache.Refresh = "every minute" }, true},
		{"good cron", func(c *Config) { c.Cache.Refresh = "*/5 * * * *" }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, true},
		{"log level offset", func(c *Config) { c.Log.Level = "DEBUG+2" }, false},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLog_SlogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info+2", slog.LevelInfo + 2},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		got, err := Log{Level: tt.input}.SlogLevel()
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := Log{Level: "loud"}.SlogLevel()
	assert.Error(t, err)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_Example(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "config.example.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sftp", cfg.Host.Type)
	require.NotNil(t, cfg.Host.Auth)
	assert.Equal(t, 22, cfg.Host.Auth.Port)
	assert.Nil(t, cfg.Host.MinIO)
	assert.Equal(t, "*/5 * * * *", cfg.Cache.Refresh)
}
