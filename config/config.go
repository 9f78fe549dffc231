package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Redis   RedisConfig
	Catalog CatalogConfig
	Gateway GatewayConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:3000,http://localhost:3001)
}

// BackendConfig holds settings for the upstream webinar backend (the system of record).
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CatalogConfig holds webinar catalog cache settings.
type CatalogConfig struct {
	CacheTTL time.Duration
}

// GatewayConfig holds hosted checkout session settings.
type GatewayConfig struct {
	Currency            string
	CheckoutDescription string
	// CompleteWait bounds how long the completion endpoint blocks waiting
	// for the attempt to reach a terminal state before answering 202.
	CompleteWait time.Duration
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8081"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
		},
		Backend: BackendConfig{
			BaseURL:        getEnv("BACKEND_BASE_URL", "http://localhost:8080/api"),
			RequestTimeout: time.Duration(getEnvInt("BACKEND_TIMEOUT_SEC", 15)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Catalog: CatalogConfig{
			CacheTTL: time.Duration(getEnvInt("CATALOG_CACHE_TTL_SEC", 60)) * time.Second,
		},
		Gateway: GatewayConfig{
			Currency:            getEnv("GATEWAY_CURRENCY", "INR"),
			CheckoutDescription: getEnv("GATEWAY_CHECKOUT_DESCRIPTION", "Enrollment for Webinar"),
			CompleteWait:        time.Duration(getEnvInt("GATEWAY_COMPLETE_WAIT_SEC", 10)) * time.Second,
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
