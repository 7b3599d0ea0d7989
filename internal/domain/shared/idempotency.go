package shared

import (
	"context"
	"time"
)

// IdempotencyStore records operation keys that have already been claimed
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl.
	// Returns true if the key was newly claimed, false if someone already holds it.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim so the operation can be retried
	Release(ctx context.Context, key string) error

	Close() error
}
