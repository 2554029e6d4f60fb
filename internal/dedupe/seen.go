// Package dedupe remembers which recommendations an account has already received.
package dedupe

import (
	"context"
	"fmt"

	"github.com/justestif/spotigen/internal/kvstore"
)

// DefaultLimit is how many of the most recent URIs are remembered per account.
const DefaultLimit = 5000

const keyPrefix = "recommended:"

// SeenSet is a bounded per-account set of track URIs.
type SeenSet struct {
	kv    kvstore.Store
	limit int
}

// Option configures a SeenSet.
type Option func(*SeenSet)

// WithLimit overrides DefaultLimit. Non-positive values disable trimming.
func WithLimit(n int) Option {
	return func(s *SeenSet) { s.limit = n }
}

// New creates a SeenSet.
func New(kv kvstore.Store, opts ...Option) *SeenSet {
	s := &SeenSet{kv: kv, limit: DefaultLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the store key for an account.
func Key(accountID string) string {
	return keyPrefix + accountID
}

// Filter returns the uris not yet seen by accountID, preserving order and
// dropping duplicates within uris.
func (s *SeenSet) Filter(ctx context.Context, accountID string, uris []string) ([]string, error) {
	members, err := s.kv.Members(ctx, Key(accountID))
	if err != nil {
		return nil, fmt.Errorf("loading seen set: %w", err)
	}

	seen := make(map[string]struct{}, len(members)+len(uris))
	for _, m := range members {
		seen[m] = struct{}{}
	}

	fresh := make([]string, 0, len(uris))
	for _, u := range uris {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		fresh = append(fresh, u)
	}
	return fresh, nil
}

// Add records uris as seen by accountID.
func (s *SeenSet) Add(ctx context.Context, accountID string, uris []string) error {
	if err := s.kv.AddMembers(ctx, Key(accountID), uris, s.limit); err != nil {
		return fmt.Errorf("updating seen set: %w", err)
	}
	return nil
}
