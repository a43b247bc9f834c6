package housekeeping

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "k", "v2"); err != nil {
		t.Fatal(err)
	}
	if v, ok, err := s.Get(ctx, "k"); err != nil || !ok || v != "v2" {
		t.Errorf("Get = %q %v %v, want v2", v, ok, err)
	}
	_ = s.Put(ctx, "other", "x")
	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"k", "other"} {
		if _, ok, _ := s.Get(ctx, k); ok {
			t.Errorf("%s survived Clear", k)
		}
	}
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, testStore(t))
}

func TestSQLiteStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Put(context.Background(), KeyVersion, "7")
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if v, ok, _ := s.Get(context.Background(), KeyVersion); !ok || v != "7" {
		t.Errorf("version after reopen = %q %v", v, ok)
	}
}

// TestRedisStore needs a reachable server in TONEARM_TEST_REDIS_ADDR.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TONEARM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TONEARM_TEST_REDIS_ADDR not set")
	}
	s, err := OpenRedis(context.Background(), RedisOptions{Addr: addr, Key: "tonearm:test:" + t.Name()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = s.Clear(context.Background())
		s.Close()
	})
	exerciseStore(t, s)
}
