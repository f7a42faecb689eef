// Package config loads the TOML configuration of hostfs.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Host  Host  `toml:"host"`
	FS    FS    `toml:"fs"`
	Cache Cache `toml:"cache"`
	Log   Log   `toml:"log"`
}

type Host struct {
	Type     string `toml:"type"` // local, sftp, ftp, minio, memory
	RootPath string `toml:"root_path"`
	Auth     *Auth  `toml:"auth,omitempty"`
	MinIO    *MinIO `toml:"minio,omitempty"`
}

type Auth struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type MinIO struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Secure    bool   `toml:"secure"`
}

type FS struct {
	Encoding       string `toml:"encoding"`        // default text encoding, utf8 when empty
	StrictEncoding bool   `toml:"strict_encoding"` // reject unknown encodings instead of using utf8
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	TTL     string `toml:"ttl"`     // staleness window, e.g. "30s"
	Refresh string `toml:"refresh"` // cron spec, empty disables refreshing
	Watch   bool   `toml:"watch"`   // fsnotify invalidation, local host only
	File    string `toml:"file"`    // snapshot persisted here when set
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text, json
	Output string `toml:"output"` // stderr, stdout or a file path
}

// Default returns a configuration serving the current directory.
func Default() *Config {
	return &Config{
		Host: Host{Type: "local", RootPath: "."},
		FS:   FS{Encoding: "utf8"},
		Cache: Cache{
			TTL: "30s",
		},
		Log: Log{Level: "info", Format: "text", Output: "stderr"},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that would otherwise fail late, at first use.
func (c *Config) Validate() error {
	switch c.Host.Type {
	case "local", "memory":
	case "sftp", "ftp":
		if c.Host.Auth == nil {
			return fmt.Errorf("host type %s requires [host.auth]", c.Host.Type)
		}
	case "minio":
		if c.Host.MinIO == nil || c.Host.MinIO.Endpoint == "" || c.Host.MinIO.Bucket == "" {
			return fmt.Errorf("host type minio requires [host.minio] endpoint and bucket")
		}
	default:
		return fmt.Errorf("unknown host type: %q", c.Host.Type)
	}

	if _, err := c.Cache.TTLDuration(); err != nil {
		return fmt.Errorf("cache.ttl: %w", err)
	}
	if c.Cache.Refresh != "" {
		if _, err := cron.ParseStandard(c.Cache.Refresh); err != nil {
			return fmt.Errorf("cache.refresh: %w", err)
		}
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level the way slog does, case-insensitively and with
// offsets such as "debug+2". "warning" is accepted for "warn" and an empty
// level means info.
func (l Log) SlogLevel() (slog.Level, error) {
	name := l.Level
	switch {
	case name == "":
		return slog.LevelInfo, nil
	case strings.EqualFold(name, "warning"):
		name = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, err
	}
	return level, nil
}

// TTLDuration parses TTL. An empty TTL means entries never go stale.
func (c Cache) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", c.TTL)
	}
	return d, nil
}
