package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	S3Bucket         string
	AWSRegion        string
	S3Endpoint       string
	S3PublicBaseURL  string
	RabbitMQURL      string
	LogLevel         slog.Level
	DefaultPageSize  int
	DraftPolicy      string
	ContactMinDwell  time.Duration
	ContactRateLimit float64
	ContactRateBurst int
	ShutdownTimeout  time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Default().Warn("loading .env failed", "error", err)
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3PublicBaseURL:  getEnv("S3_PUBLIC_BASE_URL", ""),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		LogLevel:         getLevel("LOG_LEVEL", slog.LevelInfo),
		DefaultPageSize:  getInt("DEFAULT_PAGE_SIZE", 9),
		DraftPolicy:      strings.ToLower(getEnv("DRAFT_PUBLISHED_AT_POLICY", "keep")),
		ContactMinDwell:  getDuration("CONTACT_MIN_DWELL", 3*time.Second),
		ContactRateLimit: getFloat("CONTACT_RATE_LIMIT", 0.2),
		ContactRateBurst: getInt("CONTACT_RATE_BURST", 3),
		ShutdownTimeout:  getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getLevel(key string, fallback slog.Level) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(getEnv(key, ""))); err != nil {
		return fallback
	}
	return l
}
