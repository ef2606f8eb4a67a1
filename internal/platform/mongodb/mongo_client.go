// Package mongodb bootstraps the MongoDB client used by the document account store.
package mongodb

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	defaultDatabase       = "account_backend"
	defaultConnectTimeout = 60 * time.Second
	pingInterval          = 3 * time.Second
)

// ErrMissingURI is returned when MONGO_URI is not set.
var ErrMissingURI = errors.New("MONGO_URI is not set")

// Config holds the MongoDB connection settings.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// LoadConfigFromEnv reads MONGO_URI and MONGO_DB.
func LoadConfigFromEnv() Config {
	cfg := Config{
		URI:            os.Getenv("MONGO_URI"),
		Database:       os.Getenv("MONGO_DB"),
		ConnectTimeout: defaultConnectTimeout,
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	return cfg
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	if c.URI == "" {
		return ErrMissingURI
	}
	return nil
}

// Connect opens a client and pings the primary until it answers or
// cfg.ConnectTimeout elapses.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, oops.Code("MONGO_CONNECT_FAILED").Wrap(err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(pingInterval))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx, nil); err != nil {
			slog.Warn("MongoDB ping failed, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, oops.Code("MONGO_CONNECT_FAILED").With("timeout", timeout.String()).Wrap(err)
	}

	slog.Info("MongoDB connection successful", "database", cfg.Database)
	return client, nil
}
