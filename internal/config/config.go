// Package config loads the lambda configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	DEFAULT_INDEX_NAME   = "GS1"
	DEFAULT_TOKEN_EXPIRY = 7 * 24 * time.Hour
)

type Config struct {
	Storage StorageConfig
	Auth    AuthConfig
	Server  ServerConfig
	Logging LoggingConfig
}

type StorageConfig struct {
	TableName string
	IndexName string
	TopicArn  string
}

// AuthConfig values may be empty at load time. Operations that need them
// fail with a server configuration error instead.
type AuthConfig struct {
	JWTSecret      string
	TokenExpiry    time.Duration
	GoogleClientId string
}

type ServerConfig struct {
	FrontendURL string
	Location    *time.Location
}

type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig reads a .env file when present and then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}
	return FromEnvironment()
}

// FromEnvironment builds the configuration from the process environment only.
func FromEnvironment() (*Config, error) {
	tableName := getEnv("TABLE_NAME", "")
	if tableName == "" {
		return nil, fmt.Errorf("TABLE_NAME is required")
	}
	expiry, err := getEnvAsDuration("TOKEN_EXPIRY", DEFAULT_TOKEN_EXPIRY)
	if err != nil {
		return nil, err
	}
	zone := getEnv("TIMEZONE", "UTC")
	location, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", zone, err)
	}
	format := getEnv("LOG_FORMAT", "json")
	if format != "json" && format != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q, expected json or text", format)
	}
	return &Config{
		Storage: StorageConfig{
			TableName: tableName,
			IndexName: getEnv("INDEX_NAME_1", DEFAULT_INDEX_NAME),
			TopicArn:  getEnv("TOPIC_ARN", ""),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			TokenExpiry:    expiry,
			GoogleClientId: getEnv("GOOGLE_CLIENT_ID", ""),
		},
		Server: ServerConfig{
			FrontendURL: getEnv("FRONTEND_URL", "*"),
			Location:    location,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: format,
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, valueStr, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, valueStr)
	}
	return value, nil
}
