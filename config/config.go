// Package config loads process-wide configuration for the order sync
// engine from the environment and from the frozen fee/ERP identifier
// tables. Nothing in this package is accessed as a global singleton;
// Load returns a value that the caller threads into every component.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Environment string

	Database   DatabaseConfig
	Redis      RedisConfig
	Marketplace MarketplaceConfig
	ERP        ERPConfig
	Snapshot   SnapshotConfig
	Notify     NotifyConfig

	// BalanceTolerance is the permitted drift (major currency unit) between
	// principal + lines and net_proceeds before a breakdown is rejected.
	BalanceTolerance float64
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int

	Stream        string
	ConsumerGroup string
	RetentionCap  int64
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// MarketplaceConfig carries the credentials and date-window policy for the
// marketplace adapter. The posted_after lower bound is not configured here:
// the caller passes it to marketplace.Adapter.FetchWindow, which rejects a
// zero value with a ConfigurationError rather than assuming a date.
type MarketplaceConfig struct {
	BaseURL     string
	APIKey      string
	SellerID    string
	ClampWindow time.Duration
}

// ERPConfig carries the account, journal, warehouse and partner identifiers
// that the ERP projector needs. These are immutable for the life of the
// process; changing them requires a restart.
type ERPConfig struct {
	BaseURL          string
	APIKey           string
	Journal          string
	Warehouse        string
	GenericPartnerID string
	FeeTablePath     string
}

type SnapshotConfig struct {
	EveryNEvents int
	MaxAge       time.Duration
}

type NotifyConfig struct {
	WebhookURL  string
	MinSeverity int
}

// Load reads configuration from the environment (and an optional .env
// file). It never invents a fallback for PostedAfter-style boundaries;
// those are validated by their own components at the moment they are used.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "ordersync"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},

		Redis: RedisConfig{
			Host:          getEnv("REDIS_HOST", "localhost"),
			Port:          getEnv("REDIS_PORT", "6379"),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			Stream:        getEnv("FINANCE_STREAM", "finance"),
			ConsumerGroup: getEnv("FINANCE_CONSUMER_GROUP", "finance-consumers"),
			RetentionCap:  int64(getEnvAsInt("FINANCE_STREAM_RETENTION", 10000)),
		},

		Marketplace: MarketplaceConfig{
			BaseURL:     getEnv("MARKETPLACE_BASE_URL", ""),
			APIKey:      getEnv("MARKETPLACE_API_KEY", ""),
			SellerID:    getEnv("MARKETPLACE_SELLER_ID", ""),
			ClampWindow: getEnvAsDuration("MARKETPLACE_CLAMP_WINDOW", 2*time.Minute),
		},

		ERP: ERPConfig{
			BaseURL:          getEnv("ERP_BASE_URL", ""),
			APIKey:           getEnv("ERP_API_KEY", ""),
			Journal:          getEnv("ERP_JOURNAL", "Customer Invoices"),
			Warehouse:        getEnv("ERP_WAREHOUSE", "WH/Main"),
			GenericPartnerID: getEnv("ERP_GENERIC_PARTNER_ID", "marketplace-generic"),
			FeeTablePath:     getEnv("ERP_FEE_TABLE_PATH", "./config/fee_table.yaml"),
		},

		Snapshot: SnapshotConfig{
			EveryNEvents: getEnvAsInt("SNAPSHOT_EVERY_N_EVENTS", 10),
			MaxAge:       getEnvAsDuration("SNAPSHOT_MAX_AGE", 24*time.Hour),
		},

		Notify: NotifyConfig{
			WebhookURL:  getEnv("NOTIFY_WEBHOOK_URL", ""),
			MinSeverity: getEnvAsInt("NOTIFY_MIN_SEVERITY", 0),
		},

		BalanceTolerance: getEnvAsFloat("BALANCE_TOLERANCE", 0.01),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks invariants that must hold before any order is synced.
// It runs once, from Load, at process start; it is never evaluated per
// order.
func (c *Config) Validate() error {
	if c.ERP.Journal == "" {
		return fmt.Errorf("config: ERP_JOURNAL is required")
	}
	if c.ERP.GenericPartnerID == "" {
		return fmt.Errorf("config: ERP_GENERIC_PARTNER_ID is required")
	}
	if c.Redis.Stream == "" {
		return fmt.Errorf("config: FINANCE_STREAM is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string, sep string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultVal
	}
	return strings.Split(valueStr, sep)
}
