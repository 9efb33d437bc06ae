package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server          ServerConfig          `envPrefix:"BRX_SERVER_" yaml:"server"`
	Log             LogConfig             `envPrefix:"BRX_LOG_" yaml:"log"`
	Database        DatabaseConfig        `envPrefix:"BRX_DATABASE_" yaml:"database"`
	Redis           RedisConfig           `envPrefix:"BRX_REDIS_" yaml:"redis"`
	Session         SessionConfig         `envPrefix:"BRX_SESSION_" yaml:"session"`
	PersistentLogin PersistentLoginConfig `envPrefix:"BRX_PERSISTENT_LOGIN_" yaml:"persistent_login"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080" yaml:"port"`
	Host string `env:"HOST" envDefault:"localhost" yaml:"host"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info" yaml:"level"`
	Format string `env:"FORMAT" envDefault:"json" yaml:"format"`
	Output string `env:"OUTPUT" envDefault:"stdout" yaml:"output"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite" yaml:"driver"`
	DSN         string `env:"DSN" envDefault:"app.db" yaml:"dsn"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true" yaml:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379" yaml:"addr"`
	Password string `env:"PASSWORD" yaml:"password"`
	DB       int    `env:"DB" envDefault:"0" yaml:"db"`
}

type SessionConfig struct {
	Enabled  bool          `env:"ENABLED" envDefault:"true" yaml:"enabled"`
	Store    string        `env:"STORE" envDefault:"memory" yaml:"store"`
	Name     string        `env:"NAME" envDefault:"SESSbrx" yaml:"name"`
	MaxAge   time.Duration `env:"MAX_AGE" envDefault:"24h" yaml:"max_age"`
	Path     string        `env:"PATH" envDefault:"/" yaml:"path"`
	Domain   string        `env:"DOMAIN" yaml:"domain"`
	Secure   bool          `env:"SECURE" envDefault:"false" yaml:"secure"`
	HttpOnly bool          `env:"HTTP_ONLY" envDefault:"true" yaml:"http_only"`
	SameSite string        `env:"SAME_SITE" envDefault:"lax" yaml:"same_site"`
}

// PersistentLoginConfig configures the "remember me" token lifecycle.
// Lifetime is expressed in days; zero means tokens never expire. MaxTokens
// caps the number of live tokens per user; zero means no cap.
type PersistentLoginConfig struct {
	Enabled         bool          `env:"ENABLED" envDefault:"true" yaml:"enabled"`
	Lifetime        int           `env:"LIFETIME" envDefault:"30" yaml:"lifetime"`
	MaxTokens       int           `env:"MAX_TOKENS" envDefault:"0" yaml:"max_tokens"`
	CookiePrefix    string        `env:"COOKIE_PREFIX" envDefault:"PL" yaml:"cookie_prefix"`
	Secret          string        `env:"SECRET" yaml:"secret"`
	Store           string        `env:"STORE" envDefault:"database" yaml:"store"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h" yaml:"cleanup_interval"`

	// RevokeLineageOnReuse deletes a token's whole series, not just the
	// presented instance, when an invalid token is discarded. A stale
	// instance then also kills the rotated cookie held by the other party.
	RevokeLineageOnReuse bool `env:"REVOKE_LINEAGE_ON_REUSE" envDefault:"false" yaml:"revoke_lineage_on_reuse"`
}

var (
	ErrNegativeLifetime  = errors.New("persistent login lifetime cannot be negative")
	ErrNegativeMaxTokens = errors.New("persistent login max tokens cannot be negative")
)

func (c PersistentLoginConfig) Validate() error {
	if c.Lifetime < 0 {
		return ErrNegativeLifetime
	}
	if c.MaxTokens < 0 {
		return ErrNegativeMaxTokens
	}
	switch c.Store {
	case "database", "redis":
	default:
		return fmt.Errorf("unsupported persistent login store: %s (supported: database, redis)", c.Store)
	}
	return nil
}

func LoadConfig(cfg *Config) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	return cfg.PersistentLogin.Validate()
}

// LoadFile loads environment defaults and then overlays the YAML document at
// path. Keys missing from the file keep their environment value.
func LoadFile(cfg *Config, path string) error {
	if err := LoadConfig(cfg); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg.PersistentLogin.Validate()
}
