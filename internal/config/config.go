package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// APIBaseURL is the education REST API the agent talks to.
	APIBaseURL string
	APITimeout time.Duration

	TickInterval time.Duration

	// RedisURL backs checkpoints and stored credentials. Empty keeps both in memory.
	RedisURL      string
	CheckpointTTL time.Duration

	// StartRateLimit caps start attempts (password guesses) per client per minute.
	StartRateLimit int

	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8090"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "pretty"),
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:3000/api"), "/"),
		APITimeout:     time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 15)) * time.Second,
		TickInterval:   time.Duration(getEnvInt("TICK_INTERVAL_MS", 1000)) * time.Millisecond,
		RedisURL:       getEnv("REDIS_URL", ""),
		CheckpointTTL:  time.Duration(getEnvInt("CHECKPOINT_TTL_HOURS", 24)) * time.Hour,
		StartRateLimit: getEnvInt("START_RATE_LIMIT", 10),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
