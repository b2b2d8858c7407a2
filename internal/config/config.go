package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     string
	LogLevel string

	PostgresUser              string
	PostgresPassword          string
	PostgresHost              string
	PostgresPort              string
	PostgresDatabase          string
	PostgresSSLMode           string
	PostgresConnectRetries    int
	PostgresConnectRetryDelay time.Duration

	GeminiAPIKey   string
	GeminiModel    string
	GeminiEndpoint string

	CacheTTL            time.Duration
	PurgeInterval       time.Duration
	SimilarityThreshold float64
	SimilarityScanLimit int

	RateLimit       int
	RateLimitWindow time.Duration

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	AuthToken string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PostgresUser:     getEnv("POSTGRES_USER", "manuals"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDatabase: getEnv("POSTGRES_DATABASE", "manuals_qa"),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		PostgresConnectRetries:    getEnvInt("POSTGRES_CONNECT_RETRIES", 5),
		PostgresConnectRetryDelay: getEnvDuration("POSTGRES_CONNECT_RETRY_DELAY", 2*time.Second),

		GeminiAPIKey:   mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		GeminiEndpoint: getEnv("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),

		CacheTTL:            getEnvDuration("CACHE_TTL", 7*24*time.Hour),
		PurgeInterval:       getEnvDuration("CACHE_PURGE_INTERVAL", 30*time.Minute),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.8),
		SimilarityScanLimit: getEnvInt("SIMILARITY_SCAN_LIMIT", 50),

		RateLimit:       getEnvInt("RATE_LIMIT", 100),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Region:    getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		AuthToken: getEnv("AUTH_TOKEN", ""),
	}

	return cfg
}

// ArchiveEnabled reports whether ingested PDF originals should be copied to S3.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Bucket != ""
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic("Missing required environment variable: " + key)
	}
	return value
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
