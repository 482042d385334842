// Package quotastore holds the per-(user, period) token counters.
//
// The two accumulators (consumed tokens and granted top-ups) are the only
// shared mutable state in the accounting core. Every mutation goes through a
// single atomic "insert or add" operation delegated to the backing store;
// no caller ever performs a read-modify-write cycle against them.
package quotastore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// CounterStore accumulates token counts per (user, period).
//
// Contract (all backends):
//   - Add* is atomic under concurrent calls for the same key: the final total
//     equals the sum of all committed increments, regardless of interleaving.
//   - Add* returns the new cumulative total.
//   - Negative amounts are clamped to zero before accumulation; counters are
//     monotonic within a period.
//   - Get* returns 0 for a never-seen (user, period) pair.
//
// The period key is caller-supplied and opaque: callers must use week keys
// for free-tier users and month keys for pro-tier users, and must pass the
// same key on the read and write path of one accounting operation.
type CounterStore interface {
	GetUsed(ctx context.Context, userID, period string) (int64, error)
	AddUsed(ctx context.Context, userID, period string, tokens int64) (int64, error)

	GetAllowance(ctx context.Context, userID, period string) (int64, error)
	AddAllowance(ctx context.Context, userID, period string, tokens int64) (int64, error)
}

// Config selects and configures the counter backend.
type Config struct {
	Type          string // postgres, redis, memory
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewStore creates a counter store based on configuration. The gorm handle
// is only used by the postgres backend and may be nil for the others.
func NewStore(cfg Config, db *gorm.DB) (CounterStore, error) {
	switch cfg.Type {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres counter store requires a database handle")
		}
		return NewPostgresStore(db), nil
	case "redis":
		return NewRedisStore(cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported quota store type: %s", cfg.Type)
	}
}

// clampTokens floors negative or garbage amounts to zero. A negative "usage"
// must never decrease a counter.
func clampTokens(tokens int64) int64 {
	if tokens < 0 {
		return 0
	}
	return tokens
}
