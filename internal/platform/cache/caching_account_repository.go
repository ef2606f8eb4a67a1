// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
)

const (
	defaultTTL       = 10 * time.Minute
	defaultNamespace = "accounts"
)

// CachingAccountRepository decorates an AccountRepository with Redis caching
// of secret-free lookups.
//
// Only positive results are cached. Accounts are never updated or deleted,
// so a cached hit stays correct; a miss always reaches the store, so a new
// registration is visible immediately. Lookups that include the secret
// bypass the cache, and the secret is never written to Redis.
type CachingAccountRepository struct {
	inner     usecase.AccountRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	logger    *slog.Logger
}

// Compile-time check to ensure CachingAccountRepository implements AccountRepository.
var _ usecase.AccountRepository = (*CachingAccountRepository)(nil)

// NewCachingAccountRepository decorates an AccountRepository with Redis caching.
// If ttl is 0, it defaults to 10 minutes. If namespace is empty, it uses "accounts".
// A nil rdb makes the decorator a pass-through.
func NewCachingAccountRepository(rdb *redis.Client, ttl time.Duration, inner usecase.AccountRepository, namespace string) *CachingAccountRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &CachingAccountRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		logger:    slog.Default(),
	}
}

// FindByEmail checks the cache first for lookups without the secret.
func (c *CachingAccountRepository) FindByEmail(ctx context.Context, email string, includeSecret bool) (*entity.Account, error) {
	if c.rdb == nil || includeSecret {
		return c.inner.FindByEmail(ctx, email, includeSecret)
	}

	key := c.cacheKey(email)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.SafeAccount
		if err := json.Unmarshal(b, &out); err == nil {
			return fromSafe(out), nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the store
	out, err := c.inner.FindByEmail(ctx, email, false)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	c.store(ctx, out)
	return out, nil
}

// Create persists through the inner repository, then caches the new account.
func (c *CachingAccountRepository) Create(ctx context.Context, account *entity.Account) error {
	if err := c.inner.Create(ctx, account); err != nil {
		return err
	}
	if c.rdb != nil {
		c.store(ctx, account)
	}
	return nil
}

// store writes the safe projection of the account.
func (c *CachingAccountRepository) store(ctx context.Context, account *entity.Account) {
	key := c.cacheKey(account.Email)
	b, err := json.Marshal(account.Safe())
	if err != nil {
		c.logger.DebugContext(ctx, "account cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.logger.DebugContext(ctx, "account cache write failed", "key", key, "error", err)
	}
}

// cacheKey generates the cache key for an email.
func (c *CachingAccountRepository) cacheKey(email string) string {
	return fmt.Sprintf("%s:email:%s", c.namespace, email)
}

func fromSafe(s entity.SafeAccount) *entity.Account {
	return &entity.Account{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
