package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Env         string
	Port        string
	DatabaseURL string
	LogLevel    string

	MaxOpenConns int
	MaxIdleConns int

	SuggestCacheSize int
	SuggestCacheTTL  time.Duration
	FiltersCacheTTL  time.Duration

	SuggestRateLimit float64
	SuggestRateBurst int

	CORSAllowOrigin string
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "movies")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	return &Config{
		Env:              getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "5000"),
		DatabaseURL:      dbURL,
		LogLevel:         getEnv("LOG_LEVEL", ""),
		MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
		SuggestCacheSize: getEnvInt("SUGGEST_CACHE_SIZE", 1000),
		SuggestCacheTTL:  getEnvDuration("SUGGEST_CACHE_TTL", time.Minute),
		FiltersCacheTTL:  getEnvDuration("FILTERS_CACHE_TTL", 5*time.Minute),
		SuggestRateLimit: getEnvFloat("SUGGEST_RATE_LIMIT", 20),
		SuggestRateBurst: getEnvInt("SUGGEST_RATE_BURST", 40),
		CORSAllowOrigin:  getEnv("CORS_ALLOW_ORIGIN", "*"),
	}
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// getEnvDuration 解析 time.ParseDuration 格式，如 "90s"、"5m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}
