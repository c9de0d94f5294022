package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string

	// Upstream provider. The key is sent as the APIBaseKey query parameter.
	APIBaseURL  string
	APIBaseKey  string
	APIKeyValue string
	HTTPTimeout time.Duration

	// SecretAPIKey must match the x-api-key header of client requests.
	SecretAPIKey string

	CacheTime       time.Duration
	RateLimitTime   time.Duration
	RateLimitMax    int
	SweepInterval   time.Duration
	StaticIndex     string
	ShutdownTimeout time.Duration

	// In-memory store retention.
	StoreWindow     time.Duration // age at which readings leave the window
	StoreMaxHistory int           // max readings per city (0 = unlimited)

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, after loading a .env file
// if one is present, with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:            getenvDefault("PORT", "4444"),
		APIBaseURL:      os.Getenv("API_BASE_URL"),
		APIBaseKey:      getenvDefault("API_BASE_KEY", "appid"),
		APIKeyValue:     os.Getenv("API_KEY_VALUE"),
		SecretAPIKey:    os.Getenv("SECRET_API_KEY"),
		StaticIndex:     getenvDefault("STATIC_INDEX", "web/index.html"),
		StoreMaxHistory: getenvInt("STORE_MAX_HISTORY", 0),
		RateLimitMax:    getenvInt("RATELIMIT_MAX", 5),
		LogLevel:        getenvDefault("LOG_LEVEL", "info"),
		LogFormat:       getenvDefault("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.CacheTime, err = getenvDuration("CACHE_TIME", "2m"); err != nil {
		return nil, err
	}
	if cfg.RateLimitTime, err = getenvDuration("RATELIMIT_TIME", "15m"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getenvDuration("SWEEP_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.StoreWindow, err = getenvDuration("STORE_WINDOW", "24h"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	if cfg.SecretAPIKey == "" {
		return nil, errors.New("SECRET_API_KEY is required")
	}
	if cfg.RateLimitMax <= 0 {
		return nil, errors.New("RATELIMIT_MAX must be positive")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

// getenvDuration parses a Go duration. A bare integer is read as minutes,
// which is how CACHE_TIME and RATELIMIT_TIME were historically set.
func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	if n, err := strconv.Atoi(v); err == nil {
		v = fmt.Sprintf("%dm", n)
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
