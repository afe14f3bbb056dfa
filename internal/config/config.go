package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	StorageDriver        string
	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetime    time.Duration
	DBLockTimeout        time.Duration
	TxMaxRetries         int
	CheckoutStoreTimeout time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	TaxRate      decimal.Decimal
	FlatShipping decimal.Decimal
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults for empty keys.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}
	cfg := Config{
		AppEnv:   p.str("APP_ENV", "development"),
		Port:     p.str("APP_PORT", "8080"),
		LogLevel: p.str("LOG_LEVEL", "info"),

		StorageDriver:        p.str("STORAGE_DRIVER", DriverPostgres),
		DatabaseURL:          p.str("DATABASE_URL", ""),
		DBMaxOpenConns:       p.int("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       p.int("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime:    p.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		DBLockTimeout:        p.duration("DB_LOCK_TIMEOUT", 2*time.Second),
		TxMaxRetries:         p.int("TX_MAX_RETRIES", 3),
		CheckoutStoreTimeout: p.duration("CHECKOUT_STORE_TIMEOUT", 5*time.Second),

		JWTSecret: p.str("JWT_SECRET", ""),
		JWTTTL:    p.duration("JWT_TTL", 24*time.Hour),

		TaxRate:      p.decimal("TAX_RATE", decimal.Zero),
		FlatShipping: p.decimal("FLAT_SHIPPING", decimal.Zero),
	}
	if p.err != nil {
		return Config{}, p.err
	}

	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.TaxRate.IsNegative() || cfg.FlatShipping.IsNegative() {
		return Config{}, errors.New("TAX_RATE and FLAT_SHIPPING must not be negative")
	}
	return cfg, nil
}

// parser keeps the first error so Load reports one precise failure.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) str(key, def string) string {
	if v := p.getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *parser) decimal(key string, def decimal.Decimal) decimal.Decimal {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
