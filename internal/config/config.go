package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the role state engine.
type Config struct {
	// Remote role service configuration
	RoleServiceURL     string
	RoleServiceTimeout time.Duration

	// Badger backend configuration
	BadgerPath     string
	BadgerInMemory bool

	// Optional Postgres backend configuration
	PostgresEnabled     bool
	DBHost              string
	DBPort              int
	DBUser              string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	DBMaxConns          int32
	DBMinConns          int32
	DBMaxConnLifetime   time.Duration
	DBMaxConnIdleTime   time.Duration
	DBHealthCheckPeriod time.Duration

	// Test mode configuration
	TestModeDefaultDuration time.Duration

	// Logging configuration
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		RoleServiceURL:          getEnv("ROLE_SERVICE_URL", "http://localhost:8080"),
		RoleServiceTimeout:      getEnvDuration("ROLE_SERVICE_TIMEOUT", 10*time.Second),
		BadgerPath:              getEnv("BADGER_PATH", "./data/rolestate"),
		BadgerInMemory:          getEnvBool("BADGER_IN_MEMORY", false),
		PostgresEnabled:         getEnvBool("PG_BACKEND_ENABLED", false),
		DBHost:                  getEnv("DB_HOST", "localhost"),
		DBPort:                  getEnvInt("DB_PORT", 5432),
		DBUser:                  getEnv("DB_USER", "postgres"),
		DBPassword:              getEnv("DB_PASSWORD", "postgres"),
		DBName:                  getEnv("DB_NAME", "role_state"),
		DBSSLMode:               getEnv("DB_SSL_MODE", "disable"),
		DBMaxConns:              int32(getEnvInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getEnvInt("DB_MIN_CONNS", 2)),
		DBMaxConnLifetime:       getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		DBMaxConnIdleTime:       getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		DBHealthCheckPeriod:     getEnvDuration("DB_HEALTH_CHECK_PERIOD", time.Minute),
		TestModeDefaultDuration: getEnvDuration("TEST_MODE_DEFAULT_DURATION", 60*time.Minute),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate validates the configuration.
func (c *Config) validate() error {
	if c.RoleServiceURL == "" {
		return fmt.Errorf("ROLE_SERVICE_URL is required")
	}
	if c.RoleServiceTimeout <= 0 {
		return fmt.Errorf("ROLE_SERVICE_TIMEOUT must be positive")
	}
	if !c.BadgerInMemory && c.BadgerPath == "" {
		return fmt.Errorf("BADGER_PATH is required unless BADGER_IN_MEMORY is set")
	}
	if c.TestModeDefaultDuration <= 0 {
		return fmt.Errorf("TEST_MODE_DEFAULT_DURATION must be positive")
	}
	if c.PostgresEnabled {
		if c.DBHost == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.DBUser == "" {
			return fmt.Errorf("DB_USER is required")
		}
		if c.DBName == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	}
	return nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as int with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as bool with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
