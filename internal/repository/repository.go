package repository

import (
	"context"
)

// ConfigRepository is a persistent key-value table.
//
// Put is an upsert: the last write for a key wins and nothing is merged.
// Get returns apperror.ErrNotFound when the key has never been written.
// Implementations must be safe for concurrent use.
type ConfigRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}
