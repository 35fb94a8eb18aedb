// Package bootstrap wires the engine and its collaborators from configuration.
// Every binary builds its dependencies here so they all agree on backends.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/chris/custodial-ledger/pkg/audit"
	"github.com/chris/custodial-ledger/pkg/config"
	custodysolana "github.com/chris/custodial-ledger/pkg/custody/solana"
	"github.com/chris/custodial-ledger/pkg/idempotency"
	"github.com/chris/custodial-ledger/pkg/ledger"
	"github.com/chris/custodial-ledger/pkg/pricing"
	"github.com/chris/custodial-ledger/pkg/ratelimit"
	"github.com/chris/custodial-ledger/pkg/scheduler"
	"github.com/chris/custodial-ledger/pkg/storage"
	dydbstore "github.com/chris/custodial-ledger/pkg/storage/dynamodb"
	"github.com/chris/custodial-ledger/pkg/storage/memory"
	"github.com/chris/custodial-ledger/pkg/storage/postgres"
)

const lamportsPerSOL = 1_000_000_000

// Components are the wired dependencies shared by the binaries.
type Components struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   storage.Storage
	Engine  *ledger.Engine
	Redis   *redis.Client
	Custody *custodysolana.Custody
	// Scheduler is nil unless SQS_QUEUE_URL is set.
	Scheduler scheduler.Scheduler

	closers []func() error
}

// NewLogger installs a slog handler at the configured level as the default logger.
// Development gets text output with source locations, everything else JSON.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(logHandler(cfg, os.Stdout))
	slog.SetDefault(logger)
	return logger
}

func logHandler(cfg *config.Config, w io.Writer) slog.Handler {
	if cfg.IsDevelopment() {
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel, AddSource: true})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})
}

// Build creates the store, custody adapter, price source, guard, audit sink and
// scheduler named by cfg and the engine on top of them.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			loaded, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
			}
			awsCfg = &loaded
		}
		return *awsCfg, nil
	}

	store, err := c.buildStore(ctx, loadAWS)
	if err != nil {
		return nil, err
	}
	c.Store = store

	custody, policy, err := c.buildCustody()
	if err != nil {
		return nil, err
	}
	c.Custody = custody

	prices, err := buildPrices(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		c.Redis = redis.NewClient(opts)
		c.closers = append(c.closers, c.Redis.Close)
	}
	guard := c.buildGuard()

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithAddressValidator(custody),
		ledger.WithAudit(c.buildAudit()),
	}
	if cfg.SQSQueueURL != "" {
		awsc, err := loadAWS()
		if err != nil {
			return nil, err
		}
		c.Scheduler = scheduler.NewSQSScheduler(sqs.NewFromConfig(awsc), cfg.SQSQueueURL)
		opts = append(opts, ledger.WithScheduler(c.Scheduler))
	}

	engine, err := ledger.New(store, custody, custody, prices, guard, policy, opts...)
	if err != nil {
		return nil, err
	}
	c.Engine = engine

	ok = true
	return c, nil
}

// SettleLimiter returns the per-user settle limiter: shared through Redis when it is
// configured, process-local otherwise. It returns nil when rate limiting is disabled.
func (c *Components) SettleLimiter() ratelimit.Limiter {
	if c.Config.SettleRateLimit == 0 {
		return nil
	}
	if c.Redis != nil {
		return ratelimit.NewRedis(c.Redis, "", 1, c.Config.SettleRateLimit)
	}
	return ratelimit.NewMemory(1, c.Config.SettleRateLimit)
}

// Close releases connections opened by Build.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Components) buildStore(ctx context.Context, loadAWS func() (aws.Config, error)) (storage.Storage, error) {
	switch c.Config.Backend {
	case config.BackendDynamoDB:
		awsc, err := loadAWS()
		if err != nil {
			return nil, err
		}
		return dydbstore.New(dynamodb.NewFromConfig(awsc), c.Config.UsersTable, c.Config.SessionsTable, c.Config.LedgerTable), nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, c.Config.PostgresDSN)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, db.Close)
		if err := postgres.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.New(db), nil
	default:
		c.Logger.Warn("using in-memory store; balances are lost on restart")
		return memory.New(), nil
	}
}

// buildCustody decodes the pool key when one is configured. The pool address it
// implies must match CUSTODY_ADDRESS when both are set.
func (c *Components) buildCustody() (*custodysolana.Custody, ledger.Policy, error) {
	cfg := c.Config
	policy := cfg.Policy
	client := rpc.New(cfg.SolanaRPCURL)

	if cfg.PoolPrivateKey != "" {
		key, err := solana.PrivateKeyFromBase58(cfg.PoolPrivateKey)
		if err != nil {
			return nil, policy, fmt.Errorf("invalid POOL_PRIVATE_KEY: %w", err)
		}
		custody := custodysolana.New(client, key, c.Logger)
		if cfg.CustodyAddress != "" && cfg.CustodyAddress != custody.PoolAddress() {
			return nil, policy, fmt.Errorf("CUSTODY_ADDRESS %s does not match pool key %s", cfg.CustodyAddress, custody.PoolAddress())
		}
		policy.CustodyAddress = custody.PoolAddress()
		return custody, policy, nil
	}

	pool, err := solana.PublicKeyFromBase58(cfg.CustodyAddress)
	if err != nil {
		return nil, policy, fmt.Errorf("invalid CUSTODY_ADDRESS: %w", err)
	}
	c.Logger.Warn("no pool key configured; payouts will fail until one is set")
	return custodysolana.NewVerifier(client, pool, c.Logger), policy, nil
}

func buildPrices(cfg *config.Config) (pricing.Source, error) {
	if cfg.PriceFeedURL != "" {
		return pricing.NewFeed(pricing.FeedConfig{
			URL:               cfg.PriceFeedURL,
			AssetID:           cfg.PriceAssetID,
			BaseUnitsPerAsset: lamportsPerSOL,
			MaxAge:            cfg.PriceMaxAge,
			CacheTTL:          cfg.PriceCacheTTL,
		})
	}

	price, err := decimal.NewFromString(cfg.StaticPriceUSD)
	if err != nil {
		return nil, fmt.Errorf("invalid STATIC_PRICE_USD: %w", err)
	}
	q, err := pricing.FromUSDPrice(price, lamportsPerSOL, time.Now())
	if err != nil {
		return nil, fmt.Errorf("invalid STATIC_PRICE_USD: %w", err)
	}
	return pricing.NewStatic(q)
}

func (c *Components) buildGuard() idempotency.Guard {
	if c.Redis != nil {
		return idempotency.NewRedisGuard(c.Redis, "", c.Config.IdempotencyTTL)
	}
	if c.Config.Backend != config.BackendMemory {
		c.Logger.Warn("deposit refs are guarded in process only; set REDIS_URL when running more than one instance")
	}
	return idempotency.NewMemoryGuard()
}

func (c *Components) buildAudit() audit.Recorder {
	logRecorder := audit.NewLogRecorder(c.Logger)
	if len(c.Config.ElasticsearchAddresses) == 0 {
		return logRecorder
	}
	es, err := audit.NewElasticsearchRecorder(audit.ElasticsearchConfig{
		Addresses: c.Config.ElasticsearchAddresses,
		Username:  c.Config.ElasticsearchUsername,
		Password:  c.Config.ElasticsearchPassword,
		Index:     c.Config.ElasticsearchIndex,
	})
	if err != nil {
		c.Logger.Error("audit index unavailable, logging only", "error", err)
		return logRecorder
	}
	return audit.Multi{logRecorder, es}
}
