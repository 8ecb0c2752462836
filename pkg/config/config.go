package config

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Proxies allowed to set X-Forwarded-For / X-Real-IP
	TrustedProxies []netip.Prefix

	// Data sources and calculation settings
	Data DataConfig

	// Contact form
	Contact ContactConfig

	// Database (optional: snapshot history)
	Database DatabaseConfig

	// Redis (optional: shared cache and rate limit)
	Redis RedisConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DataConfig describes where the trade log and benchmark come from
// and the constants used by the metrics engine
type DataConfig struct {
	TradesSource    string // file path or http(s) URL
	BenchmarkSource string
	TradesSheet     string // empty = first sheet
	BenchmarkSheet  string

	StartingCapital float64
	RiskFreeRate    float64 // annual, fraction (0.03 = 3%)
	CacheTTL        time.Duration
	StaleTTL        time.Duration // how long expired entries stay available as fallback
	FetchTimeout    time.Duration
}

// ContactConfig holds contact form rate limit settings
type ContactConfig struct {
	RateLimit  int           // submissions per window per client
	RateWindow time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
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

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// SchedulerConfig holds cron expressions (6 fields, seconds first)
type SchedulerConfig struct {
	Enabled          bool
	RefreshSchedule  string
	SnapshotSchedule string
	CleanupSchedule  string
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Data: DataConfig{
			TradesSource:    getEnv("TRADES_SOURCE", "data/trading_records.xlsx"),
			BenchmarkSource: getEnv("BENCHMARK_SOURCE", "data/benchmark_index.xlsx"),
			TradesSheet:     getEnv("TRADES_SHEET", ""),
			BenchmarkSheet:  getEnv("BENCHMARK_SHEET", ""),
			StartingCapital: getEnvAsFloat("STARTING_CAPITAL", 100000),
			RiskFreeRate:    getEnvAsFloat("RISK_FREE_RATE", 0.03),
			CacheTTL:        getEnvAsDuration("CACHE_TTL", "5m"),
			StaleTTL:        getEnvAsDuration("STALE_TTL", "24h"),
			FetchTimeout:    getEnvAsDuration("FETCH_TIMEOUT", "30s"),
		},

		Contact: ContactConfig{
			RateLimit:  getEnvAsInt("CONTACT_RATE_LIMIT", 5),
			RateWindow: getEnvAsDuration("CONTACT_RATE_WINDOW", "15m"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Scheduler: SchedulerConfig{
			Enabled:          getEnvAsBool("SCHEDULER_ENABLED", true),
			RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "0 */5 * * * *"),
			SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "0 30 21 * * 1-5"),
			CleanupSchedule:  getEnv("CLEANUP_SCHEDULE", "0 */10 * * * *"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	proxies, err := parseTrustedProxies(getEnv("TRUSTED_PROXIES", ""))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	cfg.TrustedProxies = proxies

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Data.TradesSource == "" || c.Data.BenchmarkSource == "" {
		return fmt.Errorf("TRADES_SOURCE and BENCHMARK_SOURCE are required")
	}

	if c.Data.StartingCapital <= 0 {
		return fmt.Errorf("STARTING_CAPITAL must be positive")
	}

	if c.Data.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	if c.Data.StaleTTL < c.Data.CacheTTL {
		return fmt.Errorf("STALE_TTL must not be shorter than CACHE_TTL")
	}

	if c.Contact.RateLimit <= 0 || c.Contact.RateWindow <= 0 {
		return fmt.Errorf("CONTACT_RATE_LIMIT and CONTACT_RATE_WINDOW must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	// Also try relative to executable
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

// parseTrustedProxies reads a comma-separated list of CIDRs or bare addresses
func parseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid CIDR %q", item)
			}
			out = append(out, p.Masked())
			continue
		}

		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: invalid address %q", item)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
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
