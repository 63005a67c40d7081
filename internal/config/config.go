// Package config loads the application-level configuration (database,
// cache, logging) from a YAML file with environment overlays.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/dealscore/internal/infrastructure/db"
)

// AppConfig is the top-level application configuration document.
type AppConfig struct {
	Database db.Config   `yaml:"database"`
	Redis    RedisConfig `yaml:"redis"`
	LogLevel string      `yaml:"log_level" env:"LOG_LEVEL"`
	HTTPPort int         `yaml:"http_port" env:"HTTP_PORT"`
}

// RedisConfig configures the optional scoring-config cache layer.
type RedisConfig struct {
	Addr string        `yaml:"addr" env:"REDIS_ADDR"`
	TTL  time.Duration `yaml:"ttl" env:"REDIS_TTL"`
}

// Default returns the zero-DSN, persistence-disabled default, matching
// db.DefaultConfig's "disabled until a DSN is supplied" stance.
func Default() AppConfig {
	return AppConfig{
		Database: db.DefaultConfig(),
		LogLevel: "info",
		HTTPPort: 8090,
	}
}

// Load reads path (if it exists) as YAML, then applies environment
// variable overrides on top. A missing file is not an error; the
// default configuration is used and env vars still apply.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to defaults + env
		default:
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("PG_DSN"); v != "" {
		cfg.Database.DSN = v
		cfg.Database.Enabled = true
	}
	if v := os.Getenv("PG_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.Enabled = b
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTPPort = p
		}
	}
}
