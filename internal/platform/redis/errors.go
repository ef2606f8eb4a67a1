// Package redis bootstraps the optional Redis client used for account caching.
package redis

import "errors"

// ErrNotConfigured is returned when REDIS_HOST is empty.
var ErrNotConfigured = errors.New("redis is not configured")
