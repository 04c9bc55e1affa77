package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StoreBackend    string
	SpreadsheetPath string
	SheetName       string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	CacheDBPath       string
	PageCacheTTLHours int
	HashLength        int

	MaxRetries       int
	RetryBaseDelayMs int
	FetchTimeoutSec  int
	FetchBudgetSec   int
	RateLimitMs      int
	FetchMode        string
	ChromeBin        string
	UserAgent        string
	RespectRobots    bool
	GenericFallback  bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", "xlsx")),
		SpreadsheetPath: getEnv("SPREADSHEET_PATH", "./rental_listings.xlsx"),
		SheetName:       getEnv("SHEET_NAME", "Listings"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "rentals"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "rentals"),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		CacheDBPath:       getEnv("CACHE_DB_PATH", "./cache.db"),
		PageCacheTTLHours: getEnvInt("PAGE_CACHE_TTL_HOURS", 168),
		HashLength:        getEnvInt("HASH_LENGTH", 8),

		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		RetryBaseDelayMs: getEnvInt("RETRY_BASE_DELAY_MS", 2000),
		FetchTimeoutSec:  getEnvInt("FETCH_TIMEOUT_SEC", 30),
		FetchBudgetSec:   getEnvInt("FETCH_BUDGET_SEC", 90),
		RateLimitMs:      getEnvInt("RATE_LIMIT_MS", 1500),
		FetchMode:        strings.ToLower(getEnv("FETCH_MODE", "http")),
		ChromeBin:        getEnv("CHROME_BIN", ""),
		UserAgent:        getEnv("USER_AGENT", ""),
		RespectRobots:    getEnvBool("RESPECT_ROBOTS", true),
		GenericFallback:  getEnvBool("GENERIC_FALLBACK", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// PageCacheTTL is the maximum age of a cached page before it counts as a miss.
func (c *Config) PageCacheTTL() time.Duration {
	return time.Duration(c.PageCacheTTLHours) * time.Hour
}

// RateLimit is the pause between items of a bulk run.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
