package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer        string // Optional: issuer claim for access tokens (default: gatehouse)
	SigningSecret string // Required: HS256 signing secret, min 32 bytes

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./gatehouse.db)
	PepperFile           string        // Optional: path to pepper file for password hashing (default: ./pepper)
	LinkBaseURL          string        // Optional: public base URL action links point at (default: http://localhost:8080)
	AccessTTL            time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL           time.Duration // Optional: refresh token lifetime (default: 168h)
	VerificationTTL      time.Duration // Optional: email verification token lifetime (default: 24h)
	ResetTTL             time.Duration // Optional: password reset token lifetime (default: 1h)
	PasswordMinLength    int           // Optional: minimum password length (default: 8)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("GATEHOUSE_ISSUER", "gatehouse"),
		SigningSecret:        os.Getenv("GATEHOUSE_SIGNING_SECRET"),
		DatabaseFile:         getEnvOrDefault("GATEHOUSE_DATABASE_FILE", "gatehouse.db"),
		PepperFile:           getEnvOrDefault("GATEHOUSE_PEPPER_FILE", "pepper"),
		LinkBaseURL:          getEnvOrDefault("GATEHOUSE_LINK_BASE_URL", "http://localhost:8080"),
		AccessTTL:            getEnvDurationOrDefault("GATEHOUSE_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:           getEnvDurationOrDefault("GATEHOUSE_REFRESH_TTL", 7*24*time.Hour),
		VerificationTTL:      getEnvDurationOrDefault("GATEHOUSE_VERIFICATION_TTL", 24*time.Hour),
		ResetTTL:             getEnvDurationOrDefault("GATEHOUSE_RESET_TTL", 1*time.Hour),
		PasswordMinLength:    getEnvIntOrDefault("GATEHOUSE_PASSWORD_MIN_LENGTH", 8),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
