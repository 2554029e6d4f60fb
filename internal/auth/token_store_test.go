package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"golang.org/x/oauth2"

	"github.com/justestif/spotigen/internal/kvstore"
)

func TestTokenStore_SaveAndLoad(t *testing.T) {
	tests := []struct {
		name string
		rec  *TokenRecord
	}{
		{
			name: "full record",
			rec: &TokenRecord{
				AccessToken:  "test-access-token",
				RefreshToken: "test-refresh-token",
				ExpiresAt:    1700000000,
				TokenType:    "Bearer",
				Scope:        "user-top-read",
			},
		},
		{
			name: "record without refresh",
			rec: &TokenRecord{
				AccessToken: "access-only",
				ExpiresAt:   1700000000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewTokenStore(kvstore.NewMemory())
			ctx := context.Background()

			if err := store.Save(ctx, tt.rec); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded == nil {
				t.Fatal("Load() returned nil record")
			}
			if *loaded != *tt.rec {
				t.Errorf("Load() = %+v, want %+v", loaded, tt.rec)
			}
		})
	}
}

func TestTokenStore_LoadNonExistent(t *testing.T) {
	store := NewTokenStore(kvstore.NewMemory())

	rec, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if rec != nil {
		t.Errorf("Load() = %v, want nil", rec)
	}
}

func TestTokenStore_WireFormat(t *testing.T) {
	kv := kvstore.NewMemory()
	store := NewTokenStore(kv)
	ctx := context.Background()

	if err := store.Save(ctx, &TokenRecord{AccessToken: "a", RefreshToken: "r", ExpiresAt: 42}); err != nil {
		t.Fatal(err)
	}

	raw, err := kv.Get(ctx, TokenKey)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", TokenKey, err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"access_token", "refresh_token", "expires_at"} {
		if _, ok := fields[k]; !ok {
			t.Errorf("stored JSON missing %q: %s", k, raw)
		}
	}
}

func TestTokenStore_SaveNil(t *testing.T) {
	store := NewTokenStore(kvstore.NewMemory())
	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Save(nil) should return error")
	}
}

func TestTokenStore_Delete(t *testing.T) {
	store := NewTokenStore(kvstore.NewMemory())
	ctx := context.Background()

	if err := store.Delete(ctx); err != nil {
		t.Errorf("Delete() on empty store error = %v", err)
	}

	store.Save(ctx, &TokenRecord{AccessToken: "x"})
	if err := store.Delete(ctx); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if rec, _ := store.Load(ctx); rec != nil {
		t.Error("Delete() did not remove record")
	}
}

func TestTokenRecord_Merge(t *testing.T) {
	issued := time.Unix(1000, 0)
	old := &TokenRecord{AccessToken: "A1", RefreshToken: "R1", ExpiresAt: 1, TokenType: "Bearer", Scope: "s"}

	tok := (&oauth2.Token{AccessToken: "A2", ExpiresIn: 600}).WithExtra(map[string]any{"scope": "s2"})
	got := old.merge(tok, issued)

	want := TokenRecord{AccessToken: "A2", RefreshToken: "R1", ExpiresAt: 1000 + 600 - 60, TokenType: "Bearer", Scope: "s2"}
	if *got != want {
		t.Errorf("merge() = %+v, want %+v", got, want)
	}
	if old.AccessToken != "A1" {
		t.Error("merge() mutated the original record")
	}
}

func TestStateStore(t *testing.T) {
	states := NewStateStore(kvstore.NewMemory())
	ctx := context.Background()

	state, err := states.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if state == "" {
		t.Fatal("Issue() returned empty state")
	}

	if err := states.Consume(ctx, state); err != nil {
		t.Errorf("Consume() error = %v", err)
	}
	if err := states.Consume(ctx, state); !errors.Is(err, ErrStateMismatch) {
		t.Errorf("second Consume() error = %v, want ErrStateMismatch", err)
	}
	if err := states.Consume(ctx, "forged"); !errors.Is(err, ErrStateMismatch) {
		t.Errorf("Consume(forged) error = %v, want ErrStateMismatch", err)
	}
}

func TestStateStore_ConcurrentConsume(t *testing.T) {
	mr := miniredis.RunT(t)
	rs := kvstore.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rs.Close() })

	states := NewStateStore(rs)
	ctx := context.Background()

	state, err := states.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	const callbacks = 10
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for range callbacks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := states.Consume(ctx, state)
			switch {
			case err == nil:
				accepted.Add(1)
			case !errors.Is(err, ErrStateMismatch):
				t.Errorf("Consume() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != 1 {
		t.Errorf("state accepted %d times, want once", accepted.Load())
	}
	if mr.Exists("oauth_state:" + state) {
		t.Error("expected the state to be removed")
	}
}
