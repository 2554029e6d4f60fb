package kvstore

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/justestif/spotigen/internal/logging"
)

// steppingClock returns a clock advancing one second per call.
func steppingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newStores(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	rs := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	rs.now = steppingClock()
	t.Cleanup(func() { _ = rs.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"redis":  rs,
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
			}

			if err := store.Set(ctx, "k", []byte(`{"a":1}`), 0); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			got, err := store.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !bytes.Equal(got, []byte(`{"a":1}`)) {
				t.Errorf("Get() = %s", got)
			}

			if err := store.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
			}
			if err := store.Delete(ctx, "k"); err != nil {
				t.Errorf("Delete(absent) error = %v", err)
			}
		})
	}
}

func TestStore_TakeIsSingleUse(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.Take(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Take(missing) error = %v, want ErrNotFound", err)
			}

			if err := store.Set(ctx, "once", []byte("v"), time.Hour); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			const callers = 8
			var (
				wg   sync.WaitGroup
				wins atomic.Int32
			)
			for range callers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					got, err := store.Take(ctx, "once")
					if err == nil {
						if string(got) != "v" {
							t.Errorf("Take() = %q, want v", got)
						}
						wins.Add(1)
					} else if !errors.Is(err, ErrNotFound) {
						t.Errorf("Take() error = %v", err)
					}
				}()
			}
			wg.Wait()

			if wins.Load() != 1 {
				t.Errorf("%d callers took the value, want exactly 1", wins.Load())
			}
			if _, err := store.Get(ctx, "once"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after Take error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMemory_TakeExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	ctx := context.Background()
	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Minute)

	if _, err := m.Take(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Take() after expiry error = %v, want ErrNotFound", err)
	}
}

func TestStore_MembersBounded(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.AddMembers(ctx, "set", []string{"a", "b", "c"}, 4); err != nil {
				t.Fatalf("AddMembers() error = %v", err)
			}
			if err := store.AddMembers(ctx, "set", []string{"d", "e"}, 4); err != nil {
				t.Fatalf("AddMembers() error = %v", err)
			}

			got, err := store.Members(ctx, "set")
			if err != nil {
				t.Fatalf("Members() error = %v", err)
			}
			want := []string{"b", "c", "d", "e"}
			if !slices.Equal(got, want) {
				t.Errorf("Members() = %v, want %v", got, want)
			}

			empty, err := store.Members(ctx, "other")
			if err != nil {
				t.Fatalf("Members(empty) error = %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("Members(empty) = %v", empty)
			}
		})
	}
}

func TestMemory_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrNotFound", err)
	}
}

func TestRedis_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rs := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	if err := rs.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Hour)

	if _, err := rs.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrNotFound", err)
	}
}

func TestRedis_UnavailableReturnsError(t *testing.T) {
	mr := miniredis.RunT(t)
	rs := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	mr.Close()

	if _, err := rs.Get(context.Background(), "k"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want connection error", err)
	}
}

func TestBestEffort(t *testing.T) {
	called := false
	BestEffort(logging.Discard(), nil, "test", func() error {
		called = true
		return errors.New("boom")
	})
	if !called {
		t.Error("BestEffort did not run fn")
	}
}
