package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys, e.g. DIARY_JWT_SECRET -> jwt_secret.
const EnvPrefix = "DIARY_"

// Config holds the application configuration.
type Config struct {
	ServerPort          int           `koanf:"port"`
	DatabaseURL         string        `koanf:"database_url"`
	JWTSecret           string        `koanf:"jwt_secret"`
	TokenTTL            time.Duration `koanf:"token_ttl"`
	BcryptCost          int           `koanf:"bcrypt_cost"`
	LogLevel            string        `koanf:"log_level"`
	LogFormat           string        `koanf:"log_format"`
	CORSOrigins         []string      `koanf:"cors_origins"`
	CookieSecure        bool          `koanf:"cookie_secure"`
	AutoMigrate         bool          `koanf:"auto_migrate"`
	MaintenanceSchedule string        `koanf:"maintenance_schedule"`
	StatsInterval       time.Duration `koanf:"stats_interval"`
	DataDir             string        `koanf:"data_dir"`
	ShutdownTimeout     time.Duration `koanf:"shutdown_timeout"`
}

func defaults() map[string]any {
	return map[string]any{
		"port":                 8080,
		"database_url":         "sqlite://./diary.db",
		"jwt_secret":           "",
		"token_ttl":            "24h",
		"bcrypt_cost":          bcrypt.DefaultCost,
		"log_level":            "info",
		"log_format":           "console",
		"cors_origins":         []string{"http://localhost:3000"},
		"cookie_secure":        false,
		"auto_migrate":         true,
		"maintenance_schedule": "@daily",
		"stats_interval":       "30s",
		"data_dir":             ".",
		"shutdown_timeout":     "5s",
	}
}

// RegisterFlags adds the overridable settings to fs. Only flags the user
// actually sets take precedence over file and environment values.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Int("port", 8080, "HTTP listen port")
	fs.String("database-url", "", "storage connection string (sqlite://path or postgres://...)")
	fs.Duration("token-ttl", 0, "lifetime of issued access tokens")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-format", "", "log format (console, json)")
	fs.Bool("auto-migrate", true, "apply pending migrations on startup")
}

// Load merges defaults, the optional YAML file at path, DIARY_* environment
// variables and any flags changed on fs, in that order of precedence.
// fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if fs != nil {
		err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	// Comma-separated lists arrive from the environment as a single string.
	if raw := k.String("cors_origins"); raw != "" && strings.Contains(raw, ",") {
		origins := strings.Split(raw, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if err := k.Set("cors_origins", origins); err != nil {
			return nil, fmt.Errorf("split cors_origins: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required (set DIARY_JWT_SECRET)"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required"))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.ServerPort))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	return errors.Join(errs...)
}
