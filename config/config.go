package config

import (
	"errors"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// HTTP port the API listens on
	Port string `env:"PORT" envDefault:"5250"`

	// Path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" envDefault:"database/nestkey.db"`

	// Comma-separated list of allowed CORS origins
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// Secret used to sign API tokens
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret"`

	// User ID of the admin account that holds escrowed funds. There is
	// exactly one custodian; it must be configured, not discovered at
	// runtime.
	CustodianID string `env:"ESCROW_CUSTODIAN_ID"`

	// Payment gateway configuration
	Payment struct {
		SecretKey string `env:"PAYSTACK_SECRET"`
		BaseURL   string `env:"PAYSTACK_BASE_URL" envDefault:"https://api.paystack.co"`
	}

	// Reconciliation sweep configuration
	Reconcile struct {
		// Sweep interval in seconds
		Interval int `env:"RECONCILE_INTERVAL" envDefault:"300"`

		// Age in seconds after which a pending escrow is expired
		PendingExpiry int `env:"RECONCILE_PENDING_EXPIRY" envDefault:"86400"`
	}
}

var ErrNoCustodian = errors.New("ESCROW_CUSTODIAN_ID must be set to the escrow custodian user ID")

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.CustodianID == "" {
		return nil, ErrNoCustodian
	}
	return cfg, nil
}
