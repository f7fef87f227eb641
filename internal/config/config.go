package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Snapshot store drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Policies for a persisted state that fails to decode.
const (
	CorruptPolicyFail  = "fail"
	CorruptPolicyEmpty = "empty"
)

type Config struct {
	ServerPort      string        `env:"SERVER_PORT" envDefault:"25570"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`
	StorePath   string `env:"STORE_PATH" envDefault:"economy.json"`
	// SnapshotRetention is how many snapshots the SQL drivers keep.
	SnapshotRetention int `env:"SNAPSHOT_RETENTION" envDefault:"5"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"economy"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	AutosaveInterval    time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"5m"`
	PersistTransactions bool          `env:"PERSIST_TRANSACTIONS" envDefault:"false"`
	CorruptStatePolicy  string        `env:"CORRUPT_STATE_POLICY" envDefault:"fail"`

	CurrencyDecimals int32 `env:"CURRENCY_DECIMALS" envDefault:"2"`

	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"economy.transactions"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"economy-ledger"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverFile, DriverSQLite:
		if strings.TrimSpace(c.StorePath) == "" {
			return fmt.Errorf("STORE_PATH is required for the %s driver", c.StoreDriver)
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.CorruptStatePolicy {
	case CorruptPolicyFail, CorruptPolicyEmpty:
	default:
		return fmt.Errorf("unknown CORRUPT_STATE_POLICY %q", c.CorruptStatePolicy)
	}

	if c.SnapshotRetention < 1 {
		return fmt.Errorf("SNAPSHOT_RETENTION must be at least 1")
	}
	if c.AutosaveInterval < 0 {
		return fmt.Errorf("AUTOSAVE_INTERVAL must not be negative")
	}
	if c.CurrencyDecimals < 0 || c.CurrencyDecimals > 18 {
		return fmt.Errorf("CURRENCY_DECIMALS must be between 0 and 18")
	}
	return nil
}

// GetDBConnectionString returns the lib/pq connection string.
func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
