// Package cache stores rendered forecast responses keyed by the request
// that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/revenue-forecast/internal/config"
	"go.uber.org/zap"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// keyPrefix namespaces entries in shared backends.
const keyPrefix = "revenue-forecast:"

// Cache is a byte-oriented TTL cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Key hashes the JSON encoding of v. encoding/json sorts map keys, so equal
// values produce equal keys.
func Key(v any) (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return keyPrefix + hex.EncodeToString(sum[:]), nil
}

// Open returns the configured cache. Driver "none" yields a nil cache.
func Open(ctx context.Context, logger *zap.Logger, cfg config.CacheConfig) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverMemory:
		logger.Info("cache opened", zap.String("op", "cache.Open"), zap.String("driver", cfg.Driver))
		return NewMemory(), nil
	case config.DriverRedis:
		r, err := NewRedis(ctx, logger, cfg.URL)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("cache driver %q is not supported", cfg.Driver)
	}
}
