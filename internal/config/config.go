package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zfogg/tinyforum/backend/internal/logger"
)

// Config holds everything the server and CLI read from the environment.
type Config struct {
	Port          string
	Environment   string
	PublicBaseURL string

	// Database
	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseURL    string
	SQLitePath     string

	JWTSecret []byte

	// Optional backing services. Empty values disable the integration.
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	ElasticsearchURL string

	AWSRegion     string
	EmailFrom     string
	EmailFromName string

	OTelEnabled      bool
	OTelEndpoint     string
	OTelSamplingRate float64

	CORSAllowedOrigins []string
	RateLimitPerMinute int

	LogLevel string
	LogFile  string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8787"),
		Environment:        getEnvOrDefault("ENVIRONMENT", "development"),
		PublicBaseURL:      getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8787"),
		DatabaseDriver:     strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "postgres")),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnvOrDefault("SQLITE_PATH", "tinyforum.db"),
		JWTSecret:          []byte(os.Getenv("JWT_SECRET")),
		RedisHost:          os.Getenv("REDIS_HOST"),
		RedisPort:          getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		ElasticsearchURL:   os.Getenv("ELASTICSEARCH_URL"),
		AWSRegion:          getEnvOrDefault("AWS_REGION", "us-east-1"),
		EmailFrom:          os.Getenv("EMAIL_FROM"),
		EmailFromName:      getEnvOrDefault("EMAIL_FROM_NAME", "tinyforum"),
		OTelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTelSamplingRate:   getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:            getEnvOrDefault("LOG_FILE", "forum.log"),
	}

	if cfg.DatabaseURL == "" && cfg.DatabaseDriver == "postgres" {
		cfg.DatabaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnvOrDefault("DB_HOST", "localhost"),
			getEnvOrDefault("DB_PORT", "5432"),
			getEnvOrDefault("DB_USER", "postgres"),
			getEnvOrDefault("DB_PASSWORD", ""),
			getEnvOrDefault("DB_NAME", "tinyforum"),
			getEnvOrDefault("DB_SSLMODE", "disable"),
		)
	}

	return cfg, nil
}

// Validate reports configuration that the server cannot start without.
func (c *Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want postgres or sqlite)", c.DatabaseDriver)
	}
	return nil
}

// IsProduction reports whether the server runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// EmailEnabled reports whether outgoing email is configured.
func (c *Config) EmailEnabled() bool {
	return c.EmailFrom != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
