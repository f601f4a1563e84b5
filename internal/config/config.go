// ABOUTME: Configuration loading and parsing for guildstore
// ABOUTME: Supports YAML files with ${VAR} expansion, GUILDSTORE_* overrides and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the complete guildstore configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Legacy   LegacyConfig   `yaml:"legacy"`
	Pool     PoolConfig     `yaml:"pool"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds the location of the per-guild and global database files
type DatabaseConfig struct {
	Dir string `yaml:"dir" env:"GUILDSTORE_DATABASE_DIR"`
}

// LegacyConfig describes where pre-multi-tenant JSON snapshots live
type LegacyConfig struct {
	Dir string `yaml:"dir" env:"GUILDSTORE_LEGACY_DIR"`
	// GuildID restricts the shared snapshots at the root of Dir to a single guild.
	// Zero means the shared snapshots apply to any guild that is migrated.
	GuildID int64 `yaml:"guild_id" env:"GUILDSTORE_LEGACY_GUILD_ID"`
}

// PoolConfig bounds the number of open tenant database handles
type PoolConfig struct {
	MaxOpen     int           `yaml:"max_open" env:"GUILDSTORE_POOL_MAX_OPEN"`
	IdleTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	IdleTimeoutRaw string `yaml:"idle_timeout" env:"GUILDSTORE_POOL_IDLE_TIMEOUT"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" env:"GUILDSTORE_LOG_LEVEL"`
	Format string `yaml:"format" env:"GUILDSTORE_LOG_FORMAT"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Dir: "data/databases"},
		Legacy:   LegacyConfig{Dir: "data"},
		Pool: PoolConfig{
			MaxOpen:        64,
			IdleTimeout:    10 * time.Minute,
			IdleTimeoutRaw: "10m",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Values missing from the file keep their defaults. Environment variables in the
// format ${VAR_NAME} are expanded, then GUILDSTORE_* variables override the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a configuration from defaults and GUILDSTORE_* variables only.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func finish(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment overrides: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Dir == "" {
		return fmt.Errorf("database.dir is required")
	}
	if c.Pool.MaxOpen <= 0 {
		return fmt.Errorf("pool.max_open must be positive, got %d", c.Pool.MaxOpen)
	}
	if c.Pool.IdleTimeout <= 0 {
		return fmt.Errorf("pool.idle_timeout must be positive")
	}
	if c.Legacy.GuildID < 0 {
		return fmt.Errorf("legacy.guild_id must not be negative")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Pool.IdleTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Pool.IdleTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing idle_timeout %q: %w", cfg.Pool.IdleTimeoutRaw, err)
		}
		cfg.Pool.IdleTimeout = d
	}
	return nil
}
