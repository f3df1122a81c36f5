package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	JWTSecret   string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AllowedOrigins []string

	// WebSocket
	AuthGraceWindow time.Duration
	WSRateRPS       float64
	WSRateBurst     int

	MaxMessageLength int
}

// LoadConfig reads .env (if present) and the process environment.
// The returned bool reports whether a .env file was loaded.
func LoadConfig() (*Config, bool, error) {
	loaded := godotenv.Load() == nil

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "book_server"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AllowedOrigins: splitCSV(os.Getenv("ALLOWED_ORIGINS")),

		AuthGraceWindow: getEnvDuration("WS_AUTH_GRACE", 30*time.Second),
		WSRateRPS:       getEnvFloat("WS_RATE_RPS", 10),
		WSRateBurst:     getEnvInt("WS_RATE_BURST", 20),

		MaxMessageLength: getEnvInt("MAX_MESSAGE_LENGTH", 4000),
	}

	if cfg.JWTSecret == "" {
		return nil, loaded, errors.New("JWT_SECRET is required")
	}
	return cfg, loaded, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// getEnvDuration accepts Go duration strings ("45s") or plain seconds ("45").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
