package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port    string
	GinMode string

	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBAutoMigrate bool

	JWTSecret   string
	CORSOrigins []string
	LogLevel    string

	LockTimeout        time.Duration
	RefundPeriodDays   int
	VarianceThreshold  decimal.Decimal
	RateLimitPerMinute int
	RateLimitBackend   string // audit | redis
	RedisAddr          string
	AMQPURL            string
	AuditStrict        bool
	PINHashCost        int
}

// DSN returns the postgres connection string.
func (c Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// Load reads envFile when it exists and then the process environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		GinMode:          getEnv("GIN_MODE", "debug"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "postgres"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", "audit"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		AMQPURL:          os.Getenv("AMQP_URL"),
	}

	var err error
	if cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", true); err != nil {
		return Config{}, err
	}
	if cfg.AuditStrict, err = getBool("AUDIT_STRICT", false); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout, err = getDuration("LOCK_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RefundPeriodDays, err = getInt("REFUND_PERIOD_DAYS", 30); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 10); err != nil {
		return Config{}, err
	}
	if cfg.PINHashCost, err = getInt("PIN_HASH_COST", 10); err != nil {
		return Config{}, err
	}
	if cfg.VarianceThreshold, err = decimal.NewFromString(getEnv("VARIANCE_THRESHOLD", "10.00")); err != nil {
		return Config{}, fmt.Errorf("invalid VARIANCE_THRESHOLD: %w", err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.LockTimeout <= 0 {
		return errors.New("LOCK_TIMEOUT must be positive")
	}
	if c.RefundPeriodDays < 0 {
		return errors.New("REFUND_PERIOD_DAYS must not be negative")
	}
	if c.VarianceThreshold.IsNegative() {
		return errors.New("VARIANCE_THRESHOLD must not be negative")
	}
	switch c.RateLimitBackend {
	case "audit", "redis":
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be audit or redis, got %q", c.RateLimitBackend)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// getDuration accepts Go durations ("5s", "750ms") or plain seconds.
func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
