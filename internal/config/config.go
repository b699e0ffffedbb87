package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port             int
	DataPath         string
	DBPath           string
	MediaStoragePath string
	AdminEmail       string
	AdminPassword    string
	SessionTTLHours  int
	GeminiAPIKey     string
	CorsOrigins      []string
	LogLevel         string
	MetricsSampleSec int
}

func Load() Config {
	dataPath := envOr("DATA_PATH", "storage")
	return Config{
		Port:             envOrInt("PORT", 8080),
		DataPath:         dataPath,
		DBPath:           envOr("DB_PATH", dataPath+"/app.db"),
		MediaStoragePath: envOr("MEDIA_STORAGE_PATH", dataPath+"/media"),
		AdminEmail:       envOr("ADMIN_EMAIL", envOr("ADMIN_USERNAME", "")),
		AdminPassword:    envOr("ADMIN_PASSWORD", ""),
		SessionTTLHours:  envOrInt("SESSION_TTL_HOURS", 24),
		GeminiAPIKey:     envOr("GEMINI_API_KEY", ""),
		CorsOrigins:      parseCSV(envOr("CORS_ORIGINS", "")),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		MetricsSampleSec: envOrInt("METRICS_SAMPLE_INTERVAL", 15),
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
