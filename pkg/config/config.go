package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Recompute engine
	Recompute RecomputeConfig

	// Read API
	API APIConfig

	// Zone catalog override (YAML). Empty uses the embedded catalog.
	ZonesFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultRedisKeyPrefix is the cache key namespace when none is configured
const DefaultRedisKeyPrefix = "solarcapture"

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool

	// KeyPrefix namespaces every cache key, e.g. "solarcapture:cache:monthly:FR"
	KeyPrefix string
}

// RecomputeConfig controls windowed and full recompute runs
type RecomputeConfig struct {
	// WindowDays is the trailing window absorbed by a routine run (1..31).
	WindowDays int

	// Retry policy for store calls: linear backoff BackoffStep * attempt.
	MaxAttempts int
	BackoffStep time.Duration

	// Workers is the number of (zone, period) units processed concurrently.
	Workers int

	// UnitsPerSecond throttles unit dispatch. 0 disables throttling.
	UnitsPerSecond float64

	// Cron expressions (with seconds) for the scheduler jobs.
	Schedule           string
	FullRollupSchedule string
}

// APIConfig holds read API configuration
type APIConfig struct {
	AdminSecret string
	CacheTTL    time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			Enabled:   getEnvAsBool("REDIS_ENABLED", false),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", DefaultRedisKeyPrefix),
		},

		Recompute: RecomputeConfig{
			WindowDays:         getEnvAsInt("SUMMARY_WINDOW_DAYS", 5),
			MaxAttempts:        getEnvAsInt("RECOMPUTE_MAX_ATTEMPTS", 5),
			BackoffStep:        getEnvAsDuration("RECOMPUTE_BACKOFF_STEP", "30s"),
			Workers:            getEnvAsInt("RECOMPUTE_WORKERS", 1),
			UnitsPerSecond:     getEnvAsFloat("RECOMPUTE_UNITS_PER_SECOND", 0),
			Schedule:           getEnv("RECOMPUTE_SCHEDULE", "0 0 6 * * *"),
			FullRollupSchedule: getEnv("FULL_ROLLUP_SCHEDULE", "0 30 6 * * 0"),
		},

		API: APIConfig{
			AdminSecret: getEnv("UPDATE_SECRET", ""),
			CacheTTL:    getEnvAsDuration("API_CACHE_TTL", "10m"),
		},

		ZonesFile: getEnv("ZONES_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	return c.Recompute.Validate()
}

// Validate checks the recompute settings
func (r RecomputeConfig) Validate() error {
	if r.WindowDays < 1 || r.WindowDays > 31 {
		return fmt.Errorf("SUMMARY_WINDOW_DAYS must be between 1 and 31, got %d", r.WindowDays)
	}
	if r.MaxAttempts < 1 {
		return fmt.Errorf("RECOMPUTE_MAX_ATTEMPTS must be at least 1, got %d", r.MaxAttempts)
	}
	if r.Workers < 1 {
		return fmt.Errorf("RECOMPUTE_WORKERS must be at least 1, got %d", r.Workers)
	}
	if r.UnitsPerSecond < 0 {
		return fmt.Errorf("RECOMPUTE_UNITS_PER_SECOND must not be negative")
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
