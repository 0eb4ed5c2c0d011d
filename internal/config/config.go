// Package config loads and validates application configuration from an
// optional YAML file and environment variables. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loggerapp/logger-api/internal/origin"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string `yaml:"port"`

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `yaml:"databaseURL"`

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`

	// MaxBodyBytes caps request body size. Defaults to 64 KiB.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`

	// RedisURL enables cross-instance origin refresh broadcasts when set.
	RedisURL string `yaml:"redisURL"`

	Origins OriginsConfig `yaml:"origins"`
	Auth    AuthConfig    `yaml:"auth"`
	Auth0   Auth0Config   `yaml:"auth0"`
}

// OriginsConfig controls the CORS origin authorizer.
type OriginsConfig struct {
	// Trusted origins are always allowed (TRUSTED_ORIGINS, comma-separated).
	Trusted         []string        `yaml:"trusted"`
	Strategy        origin.Strategy `yaml:"strategy"`
	WriteBack       bool            `yaml:"writeBack"`
	LookupTimeout   time.Duration   `yaml:"lookupTimeout"`
	LookupRate      float64         `yaml:"lookupRate"`
	LookupBurst     int             `yaml:"lookupBurst"`
	RefreshSchedule string          `yaml:"refreshSchedule"`
	RefreshChannel  string          `yaml:"refreshChannel"`

	// ReloadInterval is the minimum spacing of manual reloads requested
	// through the admin endpoint. A burst of one is allowed.
	ReloadInterval time.Duration `yaml:"reloadInterval"`
}

// AuthConfig describes the access-token issuer.
type AuthConfig struct {
	IssuerURL     string `yaml:"issuerURL"`
	Audience      string `yaml:"audience"`
	UsernameClaim string `yaml:"usernameClaim"`
	EmailClaim    string `yaml:"emailClaim"`

	// AdminSubjects lists the token subjects allowed to use admin routes
	// (AUTH_ADMIN_SUBJECTS, comma-separated). Empty means nobody.
	AdminSubjects []string `yaml:"adminSubjects"`
}

// Auth0Config holds Management API credentials used by /api/addUser.
// All fields are optional; user creation is disabled without them.
type Auth0Config struct {
	Domain             string `yaml:"domain"`
	ClientID           string `yaml:"clientID"`
	ClientSecret       string `yaml:"clientSecret"`
	ManagementAudience string `yaml:"managementAudience"`
}

func defaults() Config {
	return Config{
		Port:         "8080",
		LogLevel:     "info",
		MaxBodyBytes: 64 << 10,
		Origins: OriginsConfig{
			Trusted:         []string{"https://loggerapp-frontend.onrender.com", "http://localhost:5173"},
			Strategy:        origin.StrategyFallback,
			WriteBack:       true,
			LookupTimeout:   2 * time.Second,
			LookupRate:      20,
			LookupBurst:     40,
			RefreshSchedule: "@every 5m",
			RefreshChannel:  "origins:refresh",
			ReloadInterval:  10 * time.Second,
		},
		Auth: AuthConfig{
			UsernameClaim: "https://my-app.com/username",
			EmailClaim:    "https://my-app.com/email",
		},
	}
}

// Load builds a Config from defaults, then the YAML file named by
// CONFIG_PATH (if set), then environment variables.
// Returns an error listing any required variables that are not set, or
// naming the first variable whose value cannot be parsed.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.Auth.IssuerURL == "" {
		missing = append(missing, "AUTH_ISSUER_URL")
	}
	if cfg.Auth.Audience == "" {
		missing = append(missing, "AUTH_AUDIENCE")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	if _, err := origin.ParseStrategy(string(cfg.Origins.Strategy)); err != nil {
		return Config{}, fmt.Errorf("ORIGIN_STRATEGY: %w", err)
	}
	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)

	if v := os.Getenv("TRUSTED_ORIGINS"); v != "" {
		cfg.Origins.Trusted = splitCSV(v)
	}
	cfg.Origins.Strategy = origin.Strategy(getEnv("ORIGIN_STRATEGY", string(cfg.Origins.Strategy)))
	cfg.Origins.RefreshSchedule = getEnv("ORIGIN_REFRESH_SCHEDULE", cfg.Origins.RefreshSchedule)
	cfg.Origins.RefreshChannel = getEnv("ORIGIN_REFRESH_CHANNEL", cfg.Origins.RefreshChannel)

	cfg.Auth.IssuerURL = getEnv("AUTH_ISSUER_URL", cfg.Auth.IssuerURL)
	cfg.Auth.Audience = getEnv("AUTH_AUDIENCE", cfg.Auth.Audience)
	cfg.Auth.UsernameClaim = getEnv("AUTH_USERNAME_CLAIM", cfg.Auth.UsernameClaim)
	cfg.Auth.EmailClaim = getEnv("AUTH_EMAIL_CLAIM", cfg.Auth.EmailClaim)
	if v := os.Getenv("AUTH_ADMIN_SUBJECTS"); v != "" {
		cfg.Auth.AdminSubjects = splitCSV(v)
	}

	cfg.Auth0.Domain = getEnv("AUTH0_DOMAIN", cfg.Auth0.Domain)
	cfg.Auth0.ClientID = getEnv("AUTH0_CLIENT_ID", cfg.Auth0.ClientID)
	cfg.Auth0.ClientSecret = getEnv("AUTH0_CLIENT_SECRET", cfg.Auth0.ClientSecret)
	cfg.Auth0.ManagementAudience = getEnv("AUTH0_MANAGEMENT_API_AUDIENCE", cfg.Auth0.ManagementAudience)

	return errors.Join(
		parseEnv("MAX_BODY_BYTES", &cfg.MaxBodyBytes, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }),
		parseEnv("ORIGIN_WRITE_BACK", &cfg.Origins.WriteBack, strconv.ParseBool),
		parseEnv("ORIGIN_LOOKUP_TIMEOUT", &cfg.Origins.LookupTimeout, time.ParseDuration),
		parseEnv("ORIGIN_LOOKUP_RATE", &cfg.Origins.LookupRate, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }),
		parseEnv("ORIGIN_LOOKUP_BURST", &cfg.Origins.LookupBurst, strconv.Atoi),
		parseEnv("ORIGIN_RELOAD_INTERVAL", &cfg.Origins.ReloadInterval, time.ParseDuration),
	)
}

// parseEnv overwrites *dst with the parsed value of key when key is set.
func parseEnv[T any](key string, dst *T, parse func(string) (T, error)) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := parse(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = parsed
	return nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
