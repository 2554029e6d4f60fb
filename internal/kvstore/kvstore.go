// Package kvstore provides the single key-value store spotigen persists state in.
package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/justestif/spotigen/internal/metrics"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("key not found")

// Store is the storage contract shared by the token store, the enrichment
// cache and the recommendation seen set.
type Store interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value at key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Take atomically returns and removes the value at key, or ErrNotFound.
	// Of several concurrent callers for one key, at most one succeeds.
	Take(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// AddMembers adds members to the ordered set at key, most recent last,
	// and keeps only the newest limit members when limit > 0.
	AddMembers(ctx context.Context, key string, members []string, limit int) error
	// Members returns the members of the ordered set at key, oldest first.
	Members(ctx context.Context, key string) ([]string, error)
}

// BestEffort runs fn and logs a failure instead of returning it. It is used
// for writes whose loss only costs a cache miss or a repeated recommendation.
func BestEffort(logger *log.Logger, m *metrics.Metrics, op string, fn func() error) {
	if err := fn(); err != nil {
		if logger != nil {
			logger.Warn("best-effort operation failed", "op", op, "err", err)
		}
		m.Degraded(op)
	}
}
