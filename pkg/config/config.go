package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Scheduler
	SchedulerInterval time.Duration // how often the scheduling pass runs
	LookaheadDays     int           // due dates further out are not pre-created
	BufferDays        int           // classifier due-soon threshold

	// Dashboard
	SummaryCacheTTL time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	intervalMinutes, err := strconv.Atoi(getEnv("SCHEDULER_INTERVAL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_INTERVAL_MINUTES: %w", err)
	}
	if intervalMinutes <= 0 {
		return nil, fmt.Errorf("SCHEDULER_INTERVAL_MINUTES must be positive, got %d", intervalMinutes)
	}

	lookaheadDays, err := strconv.Atoi(getEnv("LOOKAHEAD_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOOKAHEAD_DAYS: %w", err)
	}
	if lookaheadDays < 0 {
		return nil, fmt.Errorf("LOOKAHEAD_DAYS must not be negative, got %d", lookaheadDays)
	}

	bufferDays, err := strconv.Atoi(getEnv("BUFFER_DAYS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUFFER_DAYS: %w", err)
	}
	if bufferDays < 0 {
		return nil, fmt.Errorf("BUFFER_DAYS must not be negative, got %d", bufferDays)
	}

	summaryTTLSeconds, err := strconv.Atoi(getEnv("SUMMARY_CACHE_TTL_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUMMARY_CACHE_TTL_SECONDS: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            dbPort,
		DBUser:            getEnv("DB_USER", "inspectrack"),
		DBPassword:        getEnv("DB_PASSWORD", "dev"),
		DBName:            getEnv("DB_NAME", "inspectrack"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		SchedulerInterval: time.Duration(intervalMinutes) * time.Minute,
		LookaheadDays:     lookaheadDays,
		BufferDays:        bufferDays,
		SummaryCacheTTL:   time.Duration(summaryTTLSeconds) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
