package app

import (
	"context"
	"fmt"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/google/wire"
	"go.uber.org/zap"

	"skyrush/cogs"
	"skyrush/config"
	"skyrush/games/tower"
	"skyrush/storage/postgres"
	"skyrush/storage/sqlite"
	"skyrush/utils"
	"skyrush/webhook"
)

// ProviderSet is everything InitializeApp needs besides the config and logger.
var ProviderSet = wire.NewSet(
	NewBackend,
	NewLimiter,
	NewEngine,
	NewTowerCog,
	NewEconomyCog,
	NewStatus,
	NewWebhookServer,
	NewApp,
)

// Store is implemented by both SQL backends.
type Store interface {
	tower.SessionStore
	tower.Ledger
	cogs.AccountStore
}

// Backend is the selected database with the transaction manager its Store joins.
type Backend struct {
	Store     Store
	TxManager trm.Manager
	Driver    string
}

// NewBackend connects to Postgres when DATABASE_URL is set and to SQLite otherwise.
func NewBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Backend, func(), error) {
	if cfg.UsePostgres() {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		txManager, err := postgres.NewTxManager(pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return &Backend{Store: postgres.New(pool), TxManager: txManager, Driver: "postgres"}, pool.Close, nil
	}

	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	txManager, err := sqlite.NewTxManager(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logger.Info("using sqlite database", zap.String("path", cfg.SQLitePath))
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close sqlite", zap.Error(err))
		}
	}
	return &Backend{Store: sqlite.New(db), TxManager: txManager, Driver: "sqlite"}, cleanup, nil
}

// NewLimiter shares limits through Redis when REDIS_URL is set.
func NewLimiter(ctx context.Context, cfg config.Config, logger *zap.Logger) (utils.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		l := utils.NewLocalLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst)
		return l, l.Close, nil
	}
	client, err := utils.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("rate limiter: %w", err)
	}
	logger.Info("using redis rate limiter")
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	return utils.NewRedisLimiter(client, cfg.RateLimitPerSec, cfg.RateLimitBurst), cleanup, nil
}

func NewEngine(b *Backend, logger *zap.Logger) *tower.Engine {
	return tower.NewEngine(b.Store, b.Store, b.TxManager, logger)
}

func NewTowerCog(engine *tower.Engine, limiter utils.Limiter, cfg config.Config, logger *zap.Logger) *cogs.Tower {
	return cogs.NewTower(engine, limiter, cfg.OpTimeout, cfg.CommandPrefix, logger)
}

func NewEconomyCog(b *Backend, limiter utils.Limiter, cfg config.Config, logger *zap.Logger) *cogs.Economy {
	return cogs.NewEconomy(b.Store, limiter, cfg.OpTimeout, cfg.CommandPrefix, logger)
}

func NewWebhookServer(b *Backend, status *Status, cfg config.Config, logger *zap.Logger) *webhook.Server {
	return webhook.NewServer(b.Store, cfg.WebhookSecret, status.Get, cfg.OpTimeout, logger)
}
