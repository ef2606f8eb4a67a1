// Package db opens the GORM connection used by the SQL account store.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	// connectTimeout is how long OpenPostgres keeps retrying.
	connectTimeout = 60 * time.Second
	// retryInterval is the pause between connection attempts.
	retryInterval = 3 * time.Second
)

// Config holds the Postgres connection settings.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Opener opens a GORM connection for a DSN.
type Opener func(dsn string) (*gorm.DB, error)

// LoadConfigFromEnv reads the Postgres settings from DB_* environment variables.
func LoadConfigFromEnv() Config {
	cfg := Config{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		SSLMode:  os.Getenv("DB_SSLMODE"),
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	return cfg
}

// BuildDSN builds a Postgres key/value DSN from cfg.
func BuildDSN(cfg Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}

// gormConfig translates driver errors so duplicate keys surface as gorm.ErrDuplicatedKey.
func gormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

func postgresOpener(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), gormConfig())
}

// ConnectWithRetry calls opener until it succeeds, timeout elapses or ctx is done.
func ConnectWithRetry(ctx context.Context, dsn string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(retryInterval))

	db, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (*gorm.DB, error) {
		db, err := opener(dsn)
		if err != nil {
			slog.WarnContext(ctx, "DB connect failed, retrying", "error", err, "retry_in", retryInterval)
			return nil, retry.RetryableError(err)
		}
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("db connect failed after %v: %w", timeout, err)
	}
	return db, nil
}

// OpenPostgres connects to Postgres, retrying for up to a minute or until ctx is done.
func OpenPostgres(ctx context.Context, cfg Config) (*gorm.DB, error) {
	return ConnectWithRetry(ctx, BuildDSN(cfg), connectTimeout, postgresOpener)
}

// OpenSQLite opens a SQLite database file, for local development.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		path = "./accounts.db"
	}
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	slog.Info("using sqlite", "path", path)
	return db, nil
}
