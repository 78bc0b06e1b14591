// Package config loads the scheduling server's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cyp0633/libcalsched/server/recurrence"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// CacheConfig controls the expansion cache of the recurrence engine.
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled"`
	TTL             time.Duration `yaml:"ttl"`
	MaxEntries      int           `yaml:"max_entries"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// RecurrenceConfig controls how templates are expanded.
type RecurrenceConfig struct {
	// WindowMonths is the expansion ceiling (from now) for queries without
	// an end date.
	WindowMonths int `yaml:"window_months"`
	// MaxOccurrences caps instances per template per query.
	MaxOccurrences int         `yaml:"max_occurrences"`
	Cache          CacheConfig `yaml:"cache"`
}

// StorageConfig selects the event store.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	// DSN is the PostgreSQL connection string, e.g.
	// "host=localhost user=sched dbname=sched sslmode=disable".
	DSN string `yaml:"dsn,omitempty"`
}

// UserConfig is a Basic auth account.
type UserConfig struct {
	Username string `yaml:"username"`
	// Password is a bcrypt hash (see -hash-password) or plain text.
	Password string `yaml:"password"`
	// Admin accounts may query events of any user.
	Admin bool `yaml:"admin,omitempty"`
}

// AuthConfig enables HTTP Basic authentication when Users is non-empty.
type AuthConfig struct {
	Realm string       `yaml:"realm"`
	Users []UserConfig `yaml:"users,omitempty"`
}

// Enabled reports whether any account is configured.
func (a AuthConfig) Enabled() bool {
	return len(a.Users) > 0
}

// Config is the top-level server configuration.
type Config struct {
	Listen   string `yaml:"listen"`
	BasePath string `yaml:"base_path"`

	// Timezone is the IANA zone used for day and month boundaries
	// (today, date filters, monthly statistics). "Local" uses the host zone.
	Timezone string `yaml:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// CalendarName is advertised in exported ICS and xCal feeds.
	CalendarName string `yaml:"calendar_name"`

	Recurrence RecurrenceConfig `yaml:"recurrence"`
	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		BasePath:     "/",
		Timezone:     "Local",
		LogLevel:     "info",
		CalendarName: "Schedule",
		Recurrence: RecurrenceConfig{
			WindowMonths:   recurrence.DefaultWindowSpan,
			MaxOccurrences: recurrence.DefaultEngineConfig.MaxOccurrences,
			Cache: CacheConfig{
				Enabled:         true,
				TTL:             recurrence.DefaultCacheConfig.TTL,
				MaxEntries:      recurrence.DefaultCacheConfig.MaxEntries,
				CleanupInterval: recurrence.DefaultCacheConfig.CleanupInterval,
			},
		},
		Storage: StorageConfig{Driver: DriverMemory},
		Auth:    AuthConfig{Realm: "Schedule"},
	}
}

// Normalize fills in missing/zero values so partially-filled files still work.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	c.BasePath = "/" + strings.Trim(c.BasePath, "/")
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = def.LogLevel
	}
	if c.CalendarName == "" {
		c.CalendarName = def.CalendarName
	}

	if c.Recurrence.WindowMonths <= 0 {
		c.Recurrence.WindowMonths = def.Recurrence.WindowMonths
	}
	if c.Recurrence.MaxOccurrences <= 0 {
		c.Recurrence.MaxOccurrences = def.Recurrence.MaxOccurrences
	}
	if c.Recurrence.Cache.TTL <= 0 {
		c.Recurrence.Cache.TTL = def.Recurrence.Cache.TTL
	}
	if c.Recurrence.Cache.MaxEntries <= 0 {
		c.Recurrence.Cache.MaxEntries = def.Recurrence.Cache.MaxEntries
	}
	if c.Recurrence.Cache.CleanupInterval <= 0 {
		c.Recurrence.Cache.CleanupInterval = def.Recurrence.Cache.CleanupInterval
	}

	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}

	if c.Auth.Realm == "" {
		c.Auth.Realm = def.Auth.Realm
	}
}

// Validate reports settings that cannot be defaulted away.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	for i, u := range c.Auth.Users {
		if u.Username == "" {
			return fmt.Errorf("auth.users[%d]: username is required", i)
		}
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EngineConfig translates the recurrence section for recurrence.NewEngineWithConfig.
func (c *Config) EngineConfig(logger *slog.Logger) recurrence.EngineConfig {
	return recurrence.EngineConfig{
		CacheEnabled: c.Recurrence.Cache.Enabled,
		CacheConfig: recurrence.CacheConfig{
			TTL:             c.Recurrence.Cache.TTL,
			MaxEntries:      c.Recurrence.Cache.MaxEntries,
			CleanupInterval: c.Recurrence.Cache.CleanupInterval,
		},
		DefaultWindowMonths: c.Recurrence.WindowMonths,
		MaxOccurrences:      c.Recurrence.MaxOccurrences,
		Logger:              logger,
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults; an empty path is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".libcalsched-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
