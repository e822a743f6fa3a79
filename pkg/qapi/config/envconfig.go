package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreValkey   = "valkey"
	StorePostgres = "postgres"
)

type EnvConfig struct {
	Port           string `envconfig:"PORT" default:"3000"`
	BaseURL        string `envconfig:"BASE_URL" default:"http://localhost:3000"`
	Environment    string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	APIKey         string `envconfig:"API_KEY"`
	AuthSecret     string `envconfig:"AUTH_SECRET"`
	Store          string `envconfig:"STORE" default:"memory"`
	ValkeyAddr     string `envconfig:"VALKEY_ADDR" default:"localhost:6379"`
	ValkeyPassword string `envconfig:"VALKEY_PASSWORD"`
	ValkeyDB       int    `envconfig:"VALKEY_DB" default:"0"`
	ValkeyHash     string `envconfig:"VALKEY_HASH" default:"qsys:jobs"`
	DBHost         string `envconfig:"DB_HOST" default:"localhost"`
	DBPort         int    `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" default:"qsys"`
	DBPassword     string `envconfig:"DB_PASSWORD" default:"password"`
	DBName         string `envconfig:"DB_NAME" default:"qsys"`
	DBSSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	DBAutoMigrate  bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// ValidateEnv loads .env in development, then reads and checks the process
// environment.
func ValidateEnv() (*EnvConfig, error) {
	if isDev(os.Getenv("ENVIRONMENT")) {
		if err := godotenv.Load(); err != nil {
			log.Println("ℹ No .env file found")
		} else {
			log.Println("✓ Loaded .env file")
		}
	}

	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *EnvConfig) Validate() error {
	var errors []string

	if c.AuthSecret != "" && len(c.AuthSecret) < 32 {
		errors = append(errors, "  ❌ AUTH_SECRET must be at least 32 characters")
	}

	switch c.Store {
	case StoreMemory, StoreValkey, StorePostgres:
	default:
		errors = append(errors, fmt.Sprintf("  ❌ STORE must be one of %s, %s, %s (got %q)", StoreMemory, StoreValkey, StorePostgres, c.Store))
	}

	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		errors = append(errors, "  ❌ BASE_URL must be a valid URL")
	}

	if isProd(c.Environment) && c.APIKey == "" && c.AuthSecret == "" {
		errors = append(errors, "  ❌ API_KEY or AUTH_SECRET is required in production")
	}

	if len(errors) > 0 {
		return fmt.Errorf("environment validation failed:\n%s", strings.Join(errors, "\n"))
	}
	return nil
}

// An unset environment counts as development.
func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "", "dev", "development":
		return true
	}
	return false
}

func isProd(env string) bool {
	switch strings.ToLower(env) {
	case "prod", "production":
		return true
	}
	return false
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func (c *EnvConfig) Print(fmtr func(string, ...interface{})) {
	fmtr("📋 Configuration:\n")
	fmtr("  Environment: %s\n", c.Environment)
	fmtr("  Port: %s\n", c.Port)
	fmtr("  Base URL: %s\n", c.BaseURL)
	fmtr("  API Key: %s\n", MaskSecret(c.APIKey))
	fmtr("  Auth Secret: %s\n", MaskSecret(c.AuthSecret))
	fmtr("  Store: %s\n", c.Store)

	switch c.Store {
	case StoreValkey:
		fmtr("  Valkey: %s db=%d hash=%s\n", c.ValkeyAddr, c.ValkeyDB, c.ValkeyHash)
	case StorePostgres:
		fmtr("  Database: %s@%s:%d/%s (sslmode=%s)\n", c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
	}
}
