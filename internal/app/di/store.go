// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"

	"account_backend/internal/feature/account/adapters"
	"account_backend/internal/feature/account/adapters/mongostore"
	"account_backend/internal/feature/account/usecase"
	"account_backend/internal/platform/cache"
	"account_backend/internal/platform/db"
	"account_backend/internal/platform/http/handler"
	"account_backend/internal/platform/mongodb"
)

// Supported STORE_DRIVER values.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StoreConfig selects and tunes the account store.
type StoreConfig struct {
	Driver        string
	RunMigrations bool
	SQLitePath    string
	CacheTTL      time.Duration
}

// LoadStoreConfigFromEnv reads STORE_DRIVER, RUN_MIGRATIONS, SQLITE_PATH and ACCOUNT_CACHE_TTL.
func LoadStoreConfigFromEnv() StoreConfig {
	cfg := StoreConfig{
		Driver:        os.Getenv("STORE_DRIVER"),
		RunMigrations: true,
		SQLitePath:    os.Getenv("SQLITE_PATH"),
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverMongo
	}
	if v := os.Getenv("RUN_MIGRATIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RunMigrations = b
		} else {
			slog.Warn("ignoring invalid RUN_MIGRATIONS", "value", v)
		}
	}
	if v := os.Getenv("ACCOUNT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		} else {
			slog.Warn("ignoring invalid ACCOUNT_CACHE_TTL", "value", v)
		}
	}
	return cfg
}

// AccountStore is the assembled account repository together with its
// health checks and shutdown hook.
type AccountStore struct {
	Accounts usecase.AccountRepository
	Checks   map[string]handler.Check
	close    func(ctx context.Context) error
}

// Close releases the underlying connections.
func (s *AccountStore) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// NewAccountStore opens the store selected by cfg.Driver and wraps it with
// the Redis cache. A nil rdb leaves the cache disabled.
func NewAccountStore(ctx context.Context, cfg StoreConfig, rdb *redis.Client) (*AccountStore, error) {
	var (
		store *AccountStore
		err   error
	)
	switch cfg.Driver {
	case DriverMongo:
		store, err = newMongoStore(ctx, cfg)
	case DriverPostgres:
		store, err = newGormStore(func() (*gorm.DB, error) { return db.OpenPostgres(ctx, db.LoadConfigFromEnv()) }, cfg)
	case DriverSQLite:
		store, err = newGormStore(func() (*gorm.DB, error) { return db.OpenSQLite(cfg.SQLitePath) }, cfg)
	default:
		return nil, oops.Code("UNKNOWN_STORE_DRIVER").With("driver", cfg.Driver).
			Errorf("unknown STORE_DRIVER %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if rdb != nil {
		store.Accounts = cache.NewCachingAccountRepository(rdb, cfg.CacheTTL, store.Accounts, "accounts")
		store.Checks["cache"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return store, nil
}

func newMongoStore(ctx context.Context, cfg StoreConfig) (*AccountStore, error) {
	mcfg := mongodb.LoadConfigFromEnv()
	client, err := mongodb.Connect(ctx, mcfg)
	if err != nil {
		return nil, err
	}

	repo := mongostore.NewAccountMongo(client.Database(mcfg.Database))
	// ユニークインデックスは重複登録防止の要なので常に作成する
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	slog.Info("account store ready", "driver", DriverMongo, "database", mcfg.Database)
	return &AccountStore{
		Accounts: repo,
		Checks:   map[string]handler.Check{"store": mongoCheck(client)},
		close:    client.Disconnect,
	}, nil
}

func mongoCheck(client *mongo.Client) handler.Check {
	return func(ctx context.Context) error { return client.Ping(ctx, nil) }
}

func newGormStore(open func() (*gorm.DB, error), cfg StoreConfig) (*AccountStore, error) {
	gdb, err := open()
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.RunMigrations {
		if err := adapters.Migrate(gdb); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	slog.Info("account store ready", "driver", cfg.Driver, "migrated", cfg.RunMigrations)
	return &AccountStore{
		Accounts: adapters.NewAccountGorm(gdb),
		Checks:   map[string]handler.Check{"store": sqlDB.PingContext},
		close:    func(context.Context) error { return sqlDB.Close() },
	}, nil
}
