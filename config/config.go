// Package config loads the registry configuration. Values come from an
// optional YAML file, then a .env file, then the environment; environment
// variables take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the settings of the registry CLI.
type Config struct {
	Env      string `koanf:"env"`
	LogLevel string `koanf:"log_level"`

	// Database
	DBDriver          string `koanf:"db_driver"`
	DatabaseURL       string `koanf:"database_url"`
	SeedReferenceData bool   `koanf:"seed_reference_data"`

	// RebuildCatalog makes compaction rebuild benefits and information
	// sources from referenced values instead of preserving them.
	RebuildCatalog bool `koanf:"rebuild_catalog"`

	// Classification inputs; nil means the CLI asks for them.
	PassingScore *float64 `koanf:"passing_score"`
	BudgetPlaces *int     `koanf:"budget_places"`

	// MetricsAddr enables the /metrics endpoint when set.
	MetricsAddr string `koanf:"metrics_addr"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required")
	ErrUnsupportedDriver    = errors.New("DB_DRIVER must be postgres or sqlite3")
	ErrInvalidInteger       = errors.New("value must be a valid integer")
	ErrInvalidNumber        = errors.New("value must be a valid number")
	ErrInvalidBool          = errors.New("value must be a boolean")
	ErrNegativePassingScore = errors.New("PASSING_SCORE must not be negative")
	ErrInvalidBudgetPlaces  = errors.New("BUDGET_PLACES must be at least 1")
)

// Default values.
const (
	DefaultEnv               = "development"
	DefaultLogLevel          = "info"
	DefaultDBDriver          = "postgres"
	DefaultSeedReferenceData = true
	DefaultRebuildCatalog    = false
)

// Load reads configuration from an optional YAML file, a .env file in the
// working directory if present, and the environment. It returns the config
// and every validation error found. A config file that cannot be read is
// returned as the only error.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, []error{fmt.Errorf("failed to load .env: %w", err)}
	}

	var loadErrs []error
	collect := func(err error) {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	seed, err := getEnvBool("SEED_REFERENCE_DATA", k, "seed_reference_data", DefaultSeedReferenceData)
	collect(err)
	rebuild, err := getEnvBool("REBUILD_CATALOG", k, "rebuild_catalog", DefaultRebuildCatalog)
	collect(err)
	score, err := getEnvFloat("PASSING_SCORE", k, "passing_score")
	collect(err)
	places, err := getEnvInt("BUDGET_PLACES", k, "budget_places")
	collect(err)

	cfg := &Config{
		Env:               getEnvOrDefault("APP_ENV", k.String("env"), DefaultEnv),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", k.String("log_level"), DefaultLogLevel),
		DBDriver:          getEnvOrDefault("DB_DRIVER", k.String("db_driver"), DefaultDBDriver),
		DatabaseURL:       getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		SeedReferenceData: seed,
		RebuildCatalog:    rebuild,
		PassingScore:      score,
		BudgetPlaces:      places,
		MetricsAddr:       getEnvOrKoanf("METRICS_ADDR", k, "metrics_addr"),
	}
	if cfg.DatabaseURL == "" && cfg.DBDriver == "postgres" {
		cfg.DatabaseURL = postgresDSNFromEnv()
	}

	return cfg, append(loadErrs, cfg.Validate()...)
}

// postgresDSNFromEnv assembles a lib/pq DSN from the DB_* variables, or
// returns "" when none is set.
func postgresDSNFromEnv() string {
	keys := []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME"}
	params := []string{"host", "port", "user", "password", "dbname"}
	var parts []string
	for i, key := range keys {
		if val := os.Getenv(key); val != "" {
			parts = append(parts, params[i]+"="+val)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(append(parts, "sslmode=disable"), " ")
}

func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

func getEnvOrDefault(envKey, koanfVal, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvInt returns nil when neither the environment nor the file sets the key.
func getEnvInt(envKey string, k *koanf.Koanf, koanfKey string) (*int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("%s=%q: %w", envKey, val, ErrInvalidInteger)
		}
		return &i, nil
	}
	if !k.Exists(koanfKey) {
		return nil, nil
	}
	i := k.Int(koanfKey)
	return &i, nil
}

func getEnvFloat(envKey string, k *koanf.Koanf, koanfKey string) (*float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("%s=%q: %w", envKey, val, ErrInvalidNumber)
		}
		return &f, nil
	}
	if !k.Exists(koanfKey) {
		return nil, nil
	}
	f := k.Float64(koanfKey)
	return &f, nil
}

func getEnvBool(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) (bool, error) {
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		}
		return defaultVal, fmt.Errorf("%s=%q: %w", envKey, val, ErrInvalidBool)
	}
	if k.Exists(koanfKey) {
		return k.Bool(koanfKey), nil
	}
	return defaultVal, nil
}

// Validate checks the loaded values and returns every problem found.
func (c *Config) Validate() []error {
	var errs []error
	switch c.DBDriver {
	case "postgres", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("%q: %w", c.DBDriver, ErrUnsupportedDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.PassingScore != nil && *c.PassingScore < 0 {
		errs = append(errs, ErrNegativePassingScore)
	}
	if c.BudgetPlaces != nil && *c.BudgetPlaces < 1 {
		errs = append(errs, ErrInvalidBudgetPlaces)
	}
	return errs
}

// LogSummary returns the configuration with the database password masked.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"env":                 c.Env,
		"log_level":           c.LogLevel,
		"db_driver":           c.DBDriver,
		"database_url":        maskDatabaseURL(c.DatabaseURL),
		"seed_reference_data": strconv.FormatBool(c.SeedReferenceData),
		"rebuild_catalog":     strconv.FormatBool(c.RebuildCatalog),
		"passing_score":       formatOptional(c.PassingScore, func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }),
		"budget_places":       formatOptional(c.BudgetPlaces, strconv.Itoa),
		"metrics_addr":        c.MetricsAddr,
	}
}

func formatOptional[T any](v *T, format func(T) string) string {
	if v == nil {
		return "<ask>"
	}
	return format(*v)
}

// maskDatabaseURL hides the password of a URL or key=value DSN.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}
	if schemeEnd := strings.Index(s, "://"); schemeEnd >= 0 {
		rest := s[schemeEnd+3:]
		at := strings.Index(rest, "@")
		if at < 0 {
			return s
		}
		colon := strings.Index(rest[:at], ":")
		if colon < 0 {
			return s
		}
		return s[:schemeEnd+3] + rest[:colon] + ":****" + rest[at:]
	}
	fields := strings.Fields(s)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=****"
		}
	}
	return strings.Join(fields, " ")
}

// NewLogger returns a JSON logger in production and a text logger otherwise,
// writing to stderr at the given level. Unknown levels mean info.
func NewLogger(env, level string) *slog.Logger {
	return newLogger(os.Stderr, env, level)
}

func newLogger(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if env == "production" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
