package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ecg-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (database password, token signing keys) must only come from
// environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Token issuing configuration
	Tokens TokenConfig `yaml:"tokens"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration for the job status store (optional)
	Redis RedisConfig `yaml:"redis"`

	// Analysis worker configuration
	Analysis AnalysisConfig `yaml:"analysis"`
}

// TokenConfig holds JWT issuing configuration. Access and refresh tokens are
// signed with independent keys so a leaked refresh key cannot forge access
// tokens and vice versa.
type TokenConfig struct {
	// AccessKey signs short-lived access tokens. Secret - env only.
	AccessKey string `yaml:"-" env:"TOKEN_ACCESS_KEY"`
	// RefreshKey signs long-lived refresh tokens. Secret - env only.
	RefreshKey string `yaml:"-" env:"TOKEN_REFRESH_KEY"`

	AccessTTL  time.Duration `yaml:"access_ttl" env:"TOKEN_ACCESS_TTL" env-default:"30m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"TOKEN_REFRESH_TTL" env-default:"168h"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ecg"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ecg_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`

	// MigrationsPath is the directory holding *.sql migration files.
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds Redis connection settings for the job status store.
// If Host is empty the dispatcher falls back to an in-memory store.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// AnalysisConfig holds dispatcher and worker pool settings.
type AnalysisConfig struct {
	// Workers is the number of goroutines consuming analysis jobs.
	Workers int `yaml:"workers" env:"ANALYSIS_WORKERS" env-default:"4"`
	// MaxRetries bounds retry attempts for transient analysis failures.
	MaxRetries int `yaml:"max_retries" env:"ANALYSIS_MAX_RETRIES" env-default:"5"`
	// RetryDelay is the fixed delay between retry attempts.
	RetryDelay time.Duration `yaml:"retry_delay" env:"ANALYSIS_RETRY_DELAY" env-default:"10m"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// If config.yaml does not exist, configuration comes from the environment alone.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks invariants that cleanenv defaults cannot express.
func (c *Config) validate() error {
	if c.Tokens.AccessKey == "" {
		return fmt.Errorf("TOKEN_ACCESS_KEY must be set")
	}
	if c.Tokens.RefreshKey == "" {
		return fmt.Errorf("TOKEN_REFRESH_KEY must be set")
	}
	if c.Tokens.AccessKey == c.Tokens.RefreshKey {
		return fmt.Errorf("TOKEN_ACCESS_KEY and TOKEN_REFRESH_KEY must differ")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis workers must be at least 1, got %d", c.Analysis.Workers)
	}
	if c.Analysis.MaxRetries < 0 {
		return fmt.Errorf("analysis max_retries must not be negative, got %d", c.Analysis.MaxRetries)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
