// Package bot assembles the lost-and-found dialogue bot: configuration,
// infrastructure bootstrap, Telegram routes, and bot commands.
package bot

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/SUMERGeg/lostfound/core/config"
	coredatabase "github.com/SUMERGeg/lostfound/core/database"
)

// Store backends selectable via dialog.store.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// RedisConfig holds connection settings for the Redis state backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// DialogConfig controls the dialogue state store and its retention.
type DialogConfig struct {
	// Store selects the backend: memory, postgres, or redis.
	Store string `yaml:"store" envconfig:"DIALOG_STORE"`
	// TTLMinutes bounds how long an abandoned dialogue survives.
	TTLMinutes int `yaml:"ttl_minutes" envconfig:"DIALOG_TTL_MINUTES"`
	// SweepIntervalMinutes sets how often expired records are purged.
	// Ignored for redis, which expires keys natively.
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes" envconfig:"DIALOG_SWEEP_INTERVAL_MINUTES"`
}

// TTL returns the dialogue retention as a duration.
func (d DialogConfig) TTL() time.Duration {
	return time.Duration(d.TTLMinutes) * time.Minute
}

// SweepInterval returns the purge cadence as a duration.
func (d DialogConfig) SweepInterval() time.Duration {
	return time.Duration(d.SweepIntervalMinutes) * time.Minute
}

// Config aggregates core and bot-specific configuration.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Redis    RedisConfig         `yaml:"redis"`
	Dialog   DialogConfig        `yaml:"dialog"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// LoadConfig reads bot configuration from a YAML file with environment
// variable overrides, then validates it.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates bot configuration and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return err
	}

	store := strings.ToLower(strings.TrimSpace(cfg.Dialog.Store))
	if store == "" {
		store = StoreMemory
	}
	switch store {
	case StoreMemory:
	case StorePostgres:
		if !cfg.Database.Enabled() {
			return fmt.Errorf("dialog.store is 'postgres' but database.host is empty")
		}
	case StoreRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return fmt.Errorf("dialog.store is 'redis' but redis.addr is empty")
		}
	default:
		return fmt.Errorf("invalid dialog.store %q; allowed: memory, postgres, redis", cfg.Dialog.Store)
	}
	cfg.Dialog.Store = store

	if cfg.Dialog.TTLMinutes < 0 {
		return fmt.Errorf("dialog.ttl_minutes must be >= 0")
	}
	if cfg.Dialog.TTLMinutes == 0 {
		cfg.Dialog.TTLMinutes = 30
	}
	if cfg.Dialog.SweepIntervalMinutes < 0 {
		return fmt.Errorf("dialog.sweep_interval_minutes must be >= 0")
	}
	if cfg.Dialog.SweepIntervalMinutes == 0 {
		cfg.Dialog.SweepIntervalMinutes = 5
	}
	return nil
}
