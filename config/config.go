// Package config holds the process configuration read from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/layer-3/labledger/internal/eth"
)

const (
	LedgerLocal = "local"
	LedgerRPC   = "rpc"
)

// Config is parsed once at start and not modified afterwards.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":4000"`

	// LedgerMode selects the in-process ledger or a JSON-RPC node.
	LedgerMode      string `env:"LEDGER_MODE"      envDefault:"local"`
	RPCURL          string `env:"RPC_URL"          envDefault:"http://127.0.0.1:8545"`
	ChainID         uint64 `env:"CHAIN_ID"         envDefault:"31337"`
	DeploymentsFile string `env:"DEPLOYMENTS_FILE" envDefault:"blockchain/deployments/localhost.json"`

	JWTSecret      string        `env:"JWT_SECRET"`
	AdminAddresses []string      `env:"ADMIN_ADDRESSES" envSeparator:","`
	ChallengeTTL   time.Duration `env:"CHALLENGE_TTL"   envDefault:"5m"`
	SessionTTL     time.Duration `env:"SESSION_TTL"     envDefault:"1h"`

	// WalletKeys are hex private keys the gateway signs writes with.
	WalletKeys []string `env:"WALLET_KEYS" envSeparator:","`

	// RedisURL switches the challenge store and notifications to redis.
	RedisURL string `env:"REDIS_URL"`

	RequireIdentityForEvents bool `env:"REQUIRE_IDENTITY_FOR_EVENTS" envDefault:"true"`

	DrainDuration time.Duration `env:"DRAIN_DURATION" envDefault:"5s"`

	LogJSON    bool   `env:"LOG_JSON"`
	LogDebug   bool   `env:"LOG_DEBUG"`
	LogUID     bool   `env:"LOG_UID"`
	LogService string `env:"LOG_SERVICE" envDefault:"labledger"`
}

// Parse reads the process environment without validating it, so that
// command line flags can be applied first.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// LoadFrom parses and validates an explicit environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and lower-cases the admin addresses.
func (c *Config) Validate() error {
	switch c.LedgerMode {
	case LedgerLocal:
	case LedgerRPC:
		if c.RPCURL == "" {
			return errors.New("RPC_URL is required in rpc mode")
		}
		if c.DeploymentsFile == "" {
			return errors.New("DEPLOYMENTS_FILE is required in rpc mode")
		}
	default:
		return fmt.Errorf("unknown LEDGER_MODE %q", c.LedgerMode)
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.ChallengeTTL <= 0 || c.SessionTTL <= 0 {
		return errors.New("CHALLENGE_TTL and SESSION_TTL must be positive")
	}

	admins := make([]string, 0, len(c.AdminAddresses))
	for _, addr := range c.AdminAddresses {
		if strings.TrimSpace(addr) == "" {
			continue
		}
		normalized, err := eth.NormalizeAddress(addr)
		if err != nil {
			return fmt.Errorf("ADMIN_ADDRESSES: %w", err)
		}
		admins = append(admins, normalized)
	}
	c.AdminAddresses = admins

	keys := c.WalletKeys[:0]
	for i, key := range c.WalletKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, err := eth.ParsePrivateKey(key); err != nil {
			return fmt.Errorf("WALLET_KEYS[%d]: %w", i, err)
		}
		keys = append(keys, key)
	}
	c.WalletKeys = keys

	return nil
}
