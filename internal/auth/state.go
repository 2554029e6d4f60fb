package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/spotigen/internal/kvstore"
)

const (
	statePrefix = "oauth_state:"
	stateTTL    = 10 * time.Minute
)

// StateStore issues and verifies single-use OAuth state values.
type StateStore struct {
	kv kvstore.Store
}

// NewStateStore creates a StateStore.
func NewStateStore(kv kvstore.Store) *StateStore {
	return &StateStore{kv: kv}
}

// Issue generates a new state value and remembers it for ten minutes.
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.kv.Set(ctx, statePrefix+state, []byte("1"), stateTTL); err != nil {
		return "", fmt.Errorf("storing oauth state: %w", err)
	}
	return state, nil
}

// Consume verifies that state was issued and has not been used yet, and
// removes it in the same step. Returns ErrStateMismatch otherwise.
func (s *StateStore) Consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrStateMismatch
	}

	if _, err := s.kv.Take(ctx, statePrefix+state); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return ErrStateMismatch
		}
		return fmt.Errorf("consuming oauth state: %w", err)
	}
	return nil
}
