// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"devoverflow/internal/utils"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "devoverflow_secret_key_should_be_loaded_from_env"

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
	RequestTimeout time.Duration
	PoolSize       int // Actors per engine pool
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	Type    string // "mongo" or "memory"
	URI     string
	Name    string
	Timeout time.Duration
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// Shared secret the identity provider bridge presents when linking accounts.
	OAuthLinkSecret string
}

type AIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	Timeout        time.Duration
	RequestsPerMin int
}

type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

type RetryConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
}

// Policy is the retry policy for idempotent reads, with each attempt capped
// by the database timeout.
func (r *RetryConfig) Policy(attemptTimeout time.Duration) utils.RetryPolicy {
	p := utils.DefaultRetryPolicy()
	p.MaxTries = r.MaxTries
	p.InitialInterval = r.InitialInterval
	p.AttemptTimeout = attemptTimeout
	return p
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	Auth           *AuthConfig
	AI             *AIConfig
	Cache          *CacheConfig
	Retry          *RetryConfig
	AllowedOrigins []string
	Debug          bool
	LogFormat      string // "pretty" or "json"
}

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
		RequestTimeout: 10 * time.Second,
		PoolSize:       4,
	}
}

// DefaultDatabaseConfig provides default database settings
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Type:    "mongo",
		Name:    "devoverflow",
		Timeout: 5 * time.Second,
	}
}

func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		JWTSecret: defaultJWTSecret,
		TokenTTL:  24 * time.Hour,
	}
}

func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		Model:          "gpt-4o-mini",
		Timeout:        60 * time.Second,
		RequestsPerMin: 20,
	}
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		TTL: 5 * time.Minute,
	}
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxTries:        3,
		InitialInterval: 100 * time.Millisecond,
	}
}

// Default returns a complete configuration without reading the environment.
func Default() *Config {
	return &Config{
		Server:         DefaultConfig(),
		Database:       DefaultDatabaseConfig(),
		Auth:           DefaultAuthConfig(),
		AI:             DefaultAIConfig(),
		Cache:          DefaultCacheConfig(),
		Retry:          DefaultRetryConfig(),
		AllowedOrigins: []string{"*"},
		LogFormat:      "pretty",
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envLocations := []string{
		".env",       // Current directory
		"../../.env", // Project root when running from cmd/engine
		"../../../.env",
		filepath.Join(os.Getenv("GOPATH"), "src/devoverflow/.env"),
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		// Silent when no .env exists
		_ = godotenv.Load()
	}

	cfg := Default()

	// Server
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Server.Host = getEnvOrDefault("HOST", cfg.Server.Host)
	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		cfg.Server.MetricsEnabled = metricsEnabled == "true"
	}
	cfg.Server.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.Server.RequestTimeout)
	cfg.Server.PoolSize = getEnvInt("ENGINE_POOL_SIZE", cfg.Server.PoolSize)

	// Database
	cfg.Database.Type = getEnvOrDefault("DB_TYPE", cfg.Database.Type)
	cfg.Database.URI = os.Getenv("MONGODB_URI")
	cfg.Database.Name = getEnvOrDefault("MONGODB_DATABASE", cfg.Database.Name)
	cfg.Database.Timeout = getEnvDuration("DB_TIMEOUT", cfg.Database.Timeout)

	// Auth
	cfg.Auth.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.OAuthLinkSecret = os.Getenv("OAUTH_LINK_SECRET")

	// AI
	cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AI.Model = getEnvOrDefault("OPENAI_MODEL", cfg.AI.Model)
	cfg.AI.BaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.AI.Timeout = getEnvDuration("AI_TIMEOUT", cfg.AI.Timeout)
	cfg.AI.RequestsPerMin = getEnvInt("AI_REQUESTS_PER_MINUTE", cfg.AI.RequestsPerMin)

	// Cache
	cfg.Cache.RedisURL = os.Getenv("REDIS_URL")
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", cfg.Cache.TTL)

	// Retry
	if tries := getEnvInt("RETRY_MAX_TRIES", int(cfg.Retry.MaxTries)); tries > 0 {
		cfg.Retry.MaxTries = uint(tries)
	}
	cfg.Retry.InitialInterval = getEnvDuration("RETRY_INITIAL_INTERVAL", cfg.Retry.InitialInterval)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}
	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot safely run with.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "mongo":
		if c.Database.URI == "" {
			return fmt.Errorf("MONGODB_URI environment variable is required when DB_TYPE is mongo")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported DB_TYPE %q (want mongo or memory)", c.Database.Type)
	}

	if c.Auth.JWTSecret == defaultJWTSecret && !c.Debug {
		return fmt.Errorf("JWT_SECRET must be set outside debug mode")
	}
	if c.Server.PoolSize < 1 {
		return fmt.Errorf("ENGINE_POOL_SIZE must be at least 1")
	}
	return nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// Accepts Go duration strings ("5s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
