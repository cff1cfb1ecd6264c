package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDatabaseName = "sports_competitions"

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	MongoURI         string
	MongoDatabase    string
	DBConnectTimeout time.Duration

	JWTSecretKey string
	ServerPort   int

	CORSAllowedOrigins []string

	CleanupInterval           time.Duration
	NotificationRetentionDays int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
//
// MONGODB_URI is deliberately not checked here: the connection manager reports
// a missing connection string as db.ErrConfiguration on first connect.
func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := getEnvAsInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	connectTimeout, err := getEnvAsDuration("DB_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cleanupInterval, err := getEnvAsDuration("CLEANUP_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}
	if cleanupInterval <= 0 {
		return nil, fmt.Errorf("CLEANUP_INTERVAL must be positive, got %s", cleanupInterval)
	}

	retention, err := getEnvAsInt("NOTIFICATION_RETENTION_DAYS", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATION_RETENTION_DAYS environment variable: %w", err)
	}
	if retention < 1 {
		return nil, fmt.Errorf("NOTIFICATION_RETENTION_DAYS must be at least 1, got %d", retention)
	}

	cfg := &Config{
		MongoURI:                  os.Getenv("MONGODB_URI"),
		MongoDatabase:             getEnv("MONGODB_DB", defaultDatabaseName),
		DBConnectTimeout:          connectTimeout,
		JWTSecretKey:              jwtKey,
		ServerPort:                port,
		CORSAllowedOrigins:        splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		CleanupInterval:           cleanupInterval,
		NotificationRetentionDays: retention,
		R2AccountID:               os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:             os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:         os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:              os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:           os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

// UploadsEnabled сообщает, заданы ли все параметры Cloudflare R2.
func (c *Config) UploadsEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback, fmt.Errorf("env var %s: expected integer, got '%s'", key, valueStr)
	}
	return value, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback, fmt.Errorf("env var %s: expected duration, got '%s'", key, valueStr)
	}
	return value, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
