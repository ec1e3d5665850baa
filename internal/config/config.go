// Package config reads service configuration from the environment, loading a
// .env file first when one is present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/matthewbaird/rentmetrics/internal/policy"
)

const DefaultDigestCron = "0 7 * * *"

type Config struct {
	Port        int
	DatabaseURL string
	PolicyFile  string
	LogLevel    string
	DigestCron  string
	SeedDemo    bool

	// Currency and CountryCode override the policy document when set.
	Currency    string
	CountryCode string
}

// Load reads .env (if any) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an environment lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:        8080,
		DatabaseURL: get("DATABASE_URL", ""),
		PolicyFile:  get("POLICY_FILE", ""),
		LogLevel:    get("LOG_LEVEL", "info"),
		DigestCron:  get("DIGEST_CRON", DefaultDigestCron),
		Currency:    get("CURRENCY", ""),
		CountryCode: strings.TrimPrefix(get("DEFAULT_COUNTRY_CODE", ""), "+"),
	}
	if p := get("PORT", ""); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("config: invalid PORT %q", p)
		}
		cfg.Port = n
	}
	if s := get("SEED_DEMO", ""); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("config: invalid SEED_DEMO %q: %w", s, err)
		}
		cfg.SeedDemo = b
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q", c.LogLevel)
	}
	return l, nil
}

// PolicyOverrides renders the environment's policy settings as a CUE document,
// or nil when there is nothing to override.
func (c *Config) PolicyOverrides() []byte {
	var b strings.Builder
	if c.Currency != "" {
		fmt.Fprintf(&b, "currency: %s\n", strconv.Quote(c.Currency))
	}
	if c.CountryCode != "" {
		fmt.Fprintf(&b, "default_country_code: %s\n", strconv.Quote(c.CountryCode))
	}
	if b.Len() == 0 {
		return nil
	}
	return []byte(b.String())
}

// LoadPolicy builds the policy from the embedded defaults, the optional
// POLICY_FILE, and the environment overrides, in that order.
func (c *Config) LoadPolicy() (*policy.Policy, error) {
	var sources [][]byte
	if c.PolicyFile != "" {
		src, err := os.ReadFile(c.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("config: reading policy file: %w", err)
		}
		sources = append(sources, src)
	}
	if o := c.PolicyOverrides(); o != nil {
		sources = append(sources, o)
	}
	return policy.Build(sources...)
}
