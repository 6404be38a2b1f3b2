// Package config loads MonthWise settings from a YAML file, an optional .env
// file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvDBPath     = "MONTHWISE_DB_PATH"
	EnvLogLevel   = "LOG_LEVEL"
	EnvLogFile    = "MONTHWISE_LOG_FILE"
	EnvAuthScheme = "MONTHWISE_AUTH_SCHEME"
	EnvUnlockTTL  = "MONTHWISE_UNLOCK_TTL"
	EnvMetricsOut = "MONTHWISE_METRICS_OUT"
)

// Config represents the top-level monthwise.yaml configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls the process logger. An empty File logs to stderr.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AuthConfig selects the password scheme for newly secured profiles.
type AuthConfig struct {
	Scheme    string        `yaml:"scheme"`
	UnlockTTL time.Duration `yaml:"unlock_ttl"`
}

// MetricsConfig names the Prometheus textfile written on exit, if any.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path,omitempty"`
}

// Default returns a Config with sensible defaults for a new installation.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: defaultDBPath()},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Auth: AuthConfig{
			Scheme:    "argon2id",
			UnlockTTL: 15 * time.Minute,
		},
	}
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "monthwise.db"
	}
	return filepath.Join(dir, "monthwise", "monthwise.db")
}

// Load reads a monthwise.yaml file over the defaults. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// LoadDotEnv loads the given .env files into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from the environment. Unparsable numeric values
// are reported rather than ignored.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv(EnvAuthScheme); v != "" {
		c.Auth.Scheme = v
	}
	if v := os.Getenv(EnvMetricsOut); v != "" {
		c.Metrics.TextfilePath = v
	}
	if v := os.Getenv(EnvUnlockTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			if secs, convErr := strconv.Atoi(v); convErr == nil {
				d = time.Duration(secs) * time.Second
			} else {
				return fmt.Errorf("invalid %s %q: %w", EnvUnlockTTL, v, err)
			}
		}
		c.Auth.UnlockTTL = d
	}
	return nil
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Database.Path) == "" {
		problems = append(problems, "database path cannot be empty")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.File != "" {
		if c.Log.MaxSizeMB < 1 {
			problems = append(problems, fmt.Sprintf("invalid log max size %d: must be at least 1 MB", c.Log.MaxSizeMB))
		}
		if c.Log.MaxBackups < 0 {
			problems = append(problems, fmt.Sprintf("invalid log max backups %d: must not be negative", c.Log.MaxBackups))
		}
		if c.Log.MaxAgeDays < 0 {
			problems = append(problems, fmt.Sprintf("invalid log max age %d: must not be negative", c.Log.MaxAgeDays))
		}
	}

	switch c.Auth.Scheme {
	case "", "argon2id", "bcrypt":
	default:
		problems = append(problems, fmt.Sprintf("invalid auth scheme '%s': must be argon2id or bcrypt", c.Auth.Scheme))
	}
	if c.Auth.UnlockTTL < time.Second {
		problems = append(problems, fmt.Sprintf("invalid unlock ttl %v: must be at least 1 second", c.Auth.UnlockTTL))
	} else if c.Auth.UnlockTTL > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid unlock ttl %v: must be at most 24 hours", c.Auth.UnlockTTL))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
