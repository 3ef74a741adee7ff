package config

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/adzikra/pigeon-chat/internal/domain"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port string

	// Security
	AllowedOrigins []string

	// Rate Limiting
	RateLimitAPI rate.Limit
	RateLimitWS  rate.Limit

	// Logging
	LogLevel string

	// Broker
	MaxMessageSize    int64
	DefaultPageSize   int
	PrivateRoomPrefix string
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Port:              "4000",
		AllowedOrigins:    []string{"http://localhost:4000", "http://localhost:3000"},
		RateLimitAPI:      domain.DefaultRateLimitAPI,
		RateLimitWS:       domain.DefaultRateLimitWS,
		LogLevel:          "info", // Options: debug, info, warn, error, silent
		MaxMessageSize:    domain.DefaultMaxMessageSize,
		DefaultPageSize:   domain.DefaultPageSize,
		PrivateRoomPrefix: domain.DefaultPrivateRoomPrefix,
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	// Server
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	// Security
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	// Rate Limiting
	if rl := os.Getenv("RATE_LIMIT_API"); rl != "" {
		if val, err := strconv.Atoi(rl); err == nil && val > 0 {
			cfg.RateLimitAPI = rate.Limit(val)
		}
	}

	if rl := os.Getenv("RATE_LIMIT_WS"); rl != "" {
		if val, err := strconv.Atoi(rl); err == nil && val > 0 {
			cfg.RateLimitWS = rate.Limit(val)
		}
	}

	// Logging
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	// Broker
	if size := os.Getenv("MAX_MESSAGE_SIZE"); size != "" {
		if val, err := strconv.ParseInt(size, 10, 64); err == nil && val > 0 {
			cfg.MaxMessageSize = val
		}
	}

	if size := os.Getenv("DEFAULT_PAGE_SIZE"); size != "" {
		if val, err := strconv.Atoi(size); err == nil && val > 0 {
			cfg.DefaultPageSize = val
		}
	}

	if prefix := os.Getenv("PRIVATE_ROOM_PREFIX"); prefix != "" {
		cfg.PrivateRoomPrefix = prefix
	}

	return cfg
}

// parseOrigins parses comma-separated origins
func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
