package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisBackendTest(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisBackend(rdb, "test"), mr
}

// exerciseBackend runs the shared Store contract against a backend.
func exerciseBackend(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	store := NewStore(backend, WithClock(func() time.Time { return now }))

	if sess, err := store.Load(ctx); sess != nil || !errors.Is(err, ErrNoRecord) {
		t.Fatalf("expected empty backend, got %+v / %v", sess, err)
	}

	saved := testSession(now)
	store.Save(ctx, saved)
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load after save: %v", err)
	}
	if !reflect.DeepEqual(saved, loaded) {
		t.Fatalf("round trip mismatch: %+v vs %+v", saved, loaded)
	}

	updated := saved.Clone()
	updated.User.PhoneVerified = true
	store.Save(ctx, updated)
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load after overwrite: %v", err)
	}
	if !loaded.User.PhoneVerified {
		t.Fatal("expected overwrite to persist")
	}

	store.Clear(ctx)
	if _, err := backend.Get(ctx, store.Key()); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("expected record cleared, got %v", err)
	}
}

func TestMemoryBackendContract(t *testing.T) {
	exerciseBackend(t, NewMemoryBackend())
}

func TestFileBackendContract(t *testing.T) {
	exerciseBackend(t, NewFileBackend(filepath.Join(t.TempDir(), "state")))
}

func TestFileBackendWritesPrivateFile(t *testing.T) {
	dir := t.TempDir()
	backend := NewFileBackend(dir)
	if err := backend.Set(context.Background(), DefaultKey, []byte(`{}`), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, DefaultKey+".json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != fileRecordPermission {
		t.Fatalf("expected mode %o, got %o", fileRecordPermission, info.Mode().Perm())
	}
}

func TestRedisBackendContract(t *testing.T) {
	backend, _ := newRedisBackendTest(t)
	exerciseBackend(t, backend)
}

func TestRedisBackendAppliesSessionTTL(t *testing.T) {
	backend, mr := newRedisBackendTest(t)
	ctx := context.Background()
	now := time.Now()
	store := NewStore(backend, WithClock(func() time.Time { return now }))

	store.Save(ctx, testSession(now))

	ttl := mr.TTL("test:" + DefaultKey)
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected ttl within one hour, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if sess, err := store.Load(ctx); sess != nil || !errors.Is(err, ErrNoRecord) {
		t.Fatalf("expected record gone after ttl, got %+v / %v", sess, err)
	}
}

func TestRedisBackendUnavailable(t *testing.T) {
	backend, mr := newRedisBackendTest(t)
	mr.Close()

	_, err := backend.Get(context.Background(), DefaultKey)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestSQLiteBackendContract(t *testing.T) {
	backend, err := OpenSQLiteBackend(context.Background(), filepath.Join(t.TempDir(), "db", "session.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer backend.Close()

	exerciseBackend(t, backend)
}
