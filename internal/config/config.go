package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the API binary needs to run. Values come from
// ISKOLAR_* environment variables, optionally layered over a config file
// named by CONFIG_FILE, with sane defaults for local development.
type Config struct {
	Addr      string
	Dev       bool
	Postgres  PostgresConfig
	Session   SessionConfig
	Rate      RateConfig
	Bootstrap BootstrapConfig
}

type PostgresConfig struct {
	// DSN selects the backing store: empty means the in-memory store.
	DSN string
}

type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	RememberTTL  time.Duration
	CookieName   string
	CookieSecure bool
	BcryptCost   int
}

type RateConfig struct {
	PerSec float64
	Burst  int
}

// BootstrapConfig seeds the first master admin when the account store is
// empty. Both fields must be set for seeding to happen.
type BootstrapConfig struct {
	Email    string
	Password string
}

// Load reads configuration from the environment. Environment variables win
// over file values.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("iskolar")
	v.AutomaticEnv()

	if p := os.Getenv("CONFIG_FILE"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", p, err)
		}
	}

	v.SetDefault("addr", ":8080")
	v.SetDefault("session_ttl", "12h")
	v.SetDefault("remember_ttl", "720h")
	v.SetDefault("cookie_name", "iskolar_session")
	v.SetDefault("cookie_secure", true)
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("rate_per_sec", 10)
	v.SetDefault("rate_burst", 20)

	cfg := &Config{
		Addr: v.GetString("addr"),
		Dev:  v.GetBool("dev"),
		Postgres: PostgresConfig{
			DSN: v.GetString("pg_dsn"),
		},
		Session: SessionConfig{
			Secret:       v.GetString("session_secret"),
			TTL:          v.GetDuration("session_ttl"),
			RememberTTL:  v.GetDuration("remember_ttl"),
			CookieName:   v.GetString("cookie_name"),
			CookieSecure: v.GetBool("cookie_secure"),
			BcryptCost:   v.GetInt("bcrypt_cost"),
		},
		Rate: RateConfig{
			PerSec: v.GetFloat64("rate_per_sec"),
			Burst:  v.GetInt("rate_burst"),
		},
		Bootstrap: BootstrapConfig{
			Email:    v.GetString("bootstrap_email"),
			Password: v.GetString("bootstrap_password"),
		},
	}

	if cfg.Session.Secret == "" {
		return nil, errors.New("ISKOLAR_SESSION_SECRET is required")
	}
	if cfg.Session.TTL <= 0 || cfg.Session.RememberTTL <= 0 {
		return nil, errors.New("session TTLs must be positive")
	}
	return cfg, nil
}
