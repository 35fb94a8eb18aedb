// Package config loads process configuration from the environment, reading a .env
// file first when one is present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/chris/custodial-ledger/pkg/ledger"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the service binaries.
type Config struct {
	Environment     string
	HTTPPort        string
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	// Storage
	Backend        string
	UsersTable     string
	SessionsTable  string
	LedgerTable    string
	PostgresDSN    string
	RedisURL       string
	SQSQueueURL    string
	IdempotencyTTL time.Duration

	// Audit
	ElasticsearchAddresses []string
	ElasticsearchUsername  string
	ElasticsearchPassword  string
	ElasticsearchIndex     string

	// Identity
	JWTSecret string
	JWTIssuer string

	// Custody
	SolanaRPCURL      string
	PoolPrivateKey    string
	CustodyAddress    string
	PriceFeedURL      string
	PriceAssetID      string
	PriceMaxAge       time.Duration
	PriceCacheTTL     time.Duration
	StaticPriceUSD    string
	SettleRateLimit   time.Duration
	SweepInterval     time.Duration
	ReconcileInterval time.Duration

	Policy ledger.Policy
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	p := &parser{}
	cfg := &Config{
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
		HTTPPort:        getEnvWithDefault("HTTP_PORT", "8080"),
		LogLevel:        p.level("LOG_LEVEL", slog.LevelInfo),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 15*time.Second),

		Backend:        getEnvWithDefault("STORE_BACKEND", BackendMemory),
		UsersTable:     os.Getenv("DYNAMODB_USERS_TABLE_NAME"),
		SessionsTable:  os.Getenv("DYNAMODB_SESSIONS_TABLE_NAME"),
		LedgerTable:    os.Getenv("DYNAMODB_LEDGER_TABLE_NAME"),
		PostgresDSN:    os.Getenv("PG_DSN"),
		RedisURL:       os.Getenv("REDIS_URL"),
		SQSQueueURL:    os.Getenv("SQS_QUEUE_URL"),
		IdempotencyTTL: p.duration("IDEMPOTENCY_RESERVATION_TTL", 2*time.Minute),

		ElasticsearchAddresses: splitList(os.Getenv("ELASTICSEARCH_ADDRESSES")),
		ElasticsearchUsername:  os.Getenv("ELASTICSEARCH_USERNAME"),
		ElasticsearchPassword:  os.Getenv("ELASTICSEARCH_PASSWORD"),
		ElasticsearchIndex:     getEnvWithDefault("ELASTICSEARCH_INDEX", "ledger-audit"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: os.Getenv("JWT_ISSUER"),

		SolanaRPCURL:      getEnvWithDefault("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
		PoolPrivateKey:    os.Getenv("POOL_PRIVATE_KEY"),
		CustodyAddress:    os.Getenv("CUSTODY_ADDRESS"),
		PriceFeedURL:      os.Getenv("PRICE_FEED_URL"),
		PriceAssetID:      getEnvWithDefault("PRICE_ASSET_ID", "solana"),
		PriceMaxAge:       p.duration("PRICE_MAX_AGE", 5*time.Minute),
		PriceCacheTTL:     p.duration("PRICE_CACHE_TTL", 30*time.Second),
		StaticPriceUSD:    os.Getenv("STATIC_PRICE_USD"),
		SettleRateLimit:   p.duration("SETTLE_RATE_LIMIT", 10*time.Second),
		SweepInterval:     p.duration("SWEEP_INTERVAL", time.Minute),
		ReconcileInterval: p.duration("RECONCILE_INTERVAL", time.Minute),
	}

	policy := ledger.DefaultPolicy(cfg.CustodyAddress)
	policy.FeeBps = p.int64("FEE_BPS", policy.FeeBps)
	policy.MaxPayoutMultiplier = p.int64("MAX_PAYOUT_MULTIPLIER", policy.MaxPayoutMultiplier)
	policy.MinBet = p.int64("MIN_BET_CENTS", policy.MinBet)
	policy.MaxBet = p.int64("MAX_BET_CENTS", policy.MaxBet)
	policy.PriceSlippageBps = p.int64("PRICE_SLIPPAGE_BPS", policy.PriceSlippageBps)
	policy.SessionTTL = p.duration("SESSION_TTL", policy.SessionTTL)
	policy.SettlingTimeout = p.duration("SETTLING_TIMEOUT", policy.SettlingTimeout)
	policy.PayoutTimeout = p.duration("PAYOUT_TIMEOUT", policy.PayoutTimeout)
	policy.LockTimeout = p.duration("LOCK_TIMEOUT", policy.LockTimeout)
	policy.Expiry = ledger.ExpiryPolicy(getEnvWithDefault("EXPIRY_POLICY", string(policy.Expiry)))
	cfg.Policy = policy

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks if all required configuration is present
func (c *Config) validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.UsersTable == "" || c.SessionsTable == "" || c.LedgerTable == "" {
			return fmt.Errorf("one or more DynamoDB table name environment variables are not set")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("PG_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}

	if c.PoolPrivateKey == "" && c.CustodyAddress == "" {
		return fmt.Errorf("one of POOL_PRIVATE_KEY or CUSTODY_ADDRESS is required")
	}
	if c.PriceFeedURL == "" && c.StaticPriceUSD == "" {
		return fmt.Errorf("one of PRICE_FEED_URL or STATIC_PRICE_USD is required")
	}
	if c.SettleRateLimit < 0 || c.SweepInterval <= 0 || c.ReconcileInterval <= 0 {
		return fmt.Errorf("rate limit and sweep intervals must be positive")
	}
	if c.CustodyAddress != "" {
		// The pool key may still override it once decoded; the policy is validated then.
		if err := c.Policy.Validate(); err != nil {
			return fmt.Errorf("invalid policy: %w", err)
		}
	}
	return nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

// parser keeps the first parse error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return d
}

func (p *parser) int64(key string, def int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return n
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(raw)); err != nil {
		p.fail(key, raw, err)
		return def
	}
	return l
}
