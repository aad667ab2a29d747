// Package config provides environment-based configuration for the deploy engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the deploy engine.
type Config struct {
	// Database configuration
	DatabaseDSN string

	// Authentication
	JWTSecret string
	JWTExpiry time.Duration

	// Server configuration
	APIHost string
	APIPort int

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration

	// ProvidersFile is an optional YAML file describing hosting provider endpoints.
	ProvidersFile string

	// RepoDir is the git working directory inspected for deploy previews.
	RepoDir string

	// Providers holds per-provider endpoint configuration, loaded from ProvidersFile.
	Providers map[string]ProviderConfig

	// Orchestrator configuration
	Orchestrator OrchestratorConfig

	// Secrets holds age key configuration for env var encryption at rest.
	Secrets SecretsConfig
}

// ProviderConfig holds the HTTP boundary settings for a single hosting provider.
type ProviderConfig struct {
	// BaseURL is the provider API base URL.
	BaseURL string `yaml:"base_url"`
	// Token is the bearer token sent on every provider request.
	Token string `yaml:"token"`
}

// OrchestratorConfig holds deployment resolution settings.
type OrchestratorConfig struct {
	// ResolveInterval is how often a background resolver polls the provider.
	ResolveInterval time.Duration
	// ResolveTimeout bounds how long a deployment may stay non-terminal.
	ResolveTimeout time.Duration
	// HistoryLimit is the default page size for deployment history.
	HistoryLimit int
}

// SecretsConfig holds age encryption key configuration.
type SecretsConfig struct {
	// AgePublicKey encrypts environment variable values at rest (age1...).
	AgePublicKey string
	// AgePrivateKey decrypts stored values (AGE-SECRET-KEY-1...).
	AgePrivateKey string
}

// Load reads configuration from environment variables and the optional
// providers file.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseDSN:     getEnv("DATABASE_URL", "postgres://localhost:5432/launchdeck?sslmode=disable"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTExpiry:       getDurationEnv("JWT_EXPIRY", 24*time.Hour),
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 8080),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		ProvidersFile:   getEnv("PROVIDERS_FILE", ""),
		RepoDir:         getEnv("REPO_DIR", ""),
		Orchestrator: OrchestratorConfig{
			ResolveInterval: getDurationEnv("RESOLVE_INTERVAL", 2*time.Second),
			ResolveTimeout:  getDurationEnv("RESOLVE_TIMEOUT", 15*time.Minute),
			HistoryLimit:    getIntEnv("HISTORY_LIMIT", 20),
		},
		Secrets: SecretsConfig{
			AgePublicKey:  getEnv("AGE_PUBLIC_KEY", ""),
			AgePrivateKey: getEnv("AGE_PRIVATE_KEY", ""),
		},
	}

	if cfg.ProvidersFile != "" {
		providers, err := loadProvidersFile(cfg.ProvidersFile)
		if err != nil {
			return nil, err
		}
		cfg.Providers = providers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	return nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	return &Config{
		DatabaseDSN:     getEnv("DATABASE_URL", "postgres://localhost:5432/launchdeck?sslmode=disable"),
		JWTSecret:       getEnv("JWT_SECRET", "development-secret-key-min-32-chars"),
		JWTExpiry:       getDurationEnv("JWT_EXPIRY", 24*time.Hour),
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 8080),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		Orchestrator: OrchestratorConfig{
			ResolveInterval: getDurationEnv("RESOLVE_INTERVAL", 2*time.Second),
			ResolveTimeout:  getDurationEnv("RESOLVE_TIMEOUT", 15*time.Minute),
			HistoryLimit:    getIntEnv("HISTORY_LIMIT", 20),
		},
		Secrets: SecretsConfig{
			AgePublicKey:  getEnv("AGE_PUBLIC_KEY", ""),
			AgePrivateKey: getEnv("AGE_PRIVATE_KEY", ""),
		},
	}
}

// loadProvidersFile parses the providers YAML file.
func loadProvidersFile(path string) (map[string]ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading providers file: %w", err)
	}

	var doc struct {
		Providers map[string]ProviderConfig `yaml:"providers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing providers file: %w", err)
	}

	return doc.Providers, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
