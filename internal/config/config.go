package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port          string
	DBPath        string
	DBDriver      string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string
	LogLevel      string
	LogFormat     string

	// MaxTotalCycles caps totalCycles at creation; 0 disables the cap.
	MaxTotalCycles int
	HistoryLimit   int
	ChannelBuffer  int
}

func Load() Config {
	return Config{
		Port:           getEnv("PORT", "8080"),
		DBPath:         getEnv("DB_PATH", "./data/focusflow.db"),
		DBDriver:       getEnv("DB_DRIVER", "sqlite3"),
		JWTSecret:      getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:       time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", "./migrations"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		MaxTotalCycles: getEnvInt("MAX_TOTAL_CYCLES", 10),
		HistoryLimit:   getEnvInt("HISTORY_LIMIT", 50),
		ChannelBuffer:  getEnvInt("CHANNEL_BUFFER", 16),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
