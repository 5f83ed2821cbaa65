package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}

	mr := miniredis.RunT(t)
	redisStore, err := NewRedisStore(mr.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}

	stores := map[string]Store{
		"memory": NewMemoryStore(8),
		"sqlite": sqliteStore,
		"redis":  redisStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func sample(key string) *Derivative {
	return &Derivative{
		Key:         key,
		Preset:      "thumb",
		ContentType: "image/webp",
		Width:       200,
		Height:      100,
		Body:        []byte{0x00, 0x01, 0xFF, 0x7F},
	}
}

func TestStores_PutGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			d := sample("k1")
			id, err := s.Put(ctx, d)
			if err != nil {
				t.Fatalf("Put error: %v", err)
			}
			if id == "" || d.ID != id {
				t.Fatalf("Expected the id to be assigned, got %q", id)
			}

			got, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if got.Key != "k1" || got.Preset != "thumb" || got.ContentType != "image/webp" {
				t.Errorf("Unexpected metadata: %+v", got)
			}
			if got.Width != 200 || got.Height != 100 {
				t.Errorf("Expected 200x100, got %dx%d", got.Width, got.Height)
			}
			if !bytes.Equal(got.Body, d.Body) {
				t.Errorf("Body mismatch: %v vs %v", got.Body, d.Body)
			}
			if !got.CreatedAt.Equal(d.CreatedAt) {
				t.Errorf("CreatedAt mismatch: %v vs %v", got.CreatedAt, d.CreatedAt)
			}

			byKey, err := s.GetByKey(ctx, "k1")
			if err != nil {
				t.Fatalf("GetByKey error: %v", err)
			}
			if byKey.ID != id {
				t.Errorf("Expected id %s by key, got %s", id, byKey.ID)
			}
		})
	}
}

func TestStores_NotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get: expected ErrNotFound, got %v", err)
			}
			if _, err := s.GetByKey(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetByKey: expected ErrNotFound, got %v", err)
			}
			if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Delete: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStores_Delete(t *testing.T) {
	ctx := context.Background()
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Put(ctx, sample("k2"))
			if err != nil {
				t.Fatalf("Put error: %v", err)
			}
			if err := s.Delete(ctx, id); err != nil {
				t.Fatalf("Delete error: %v", err)
			}
			if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestMemoryStore_Evicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.Put(ctx, sample(fmt.Sprintf("k%d", i)))
		if err != nil {
			t.Fatalf("Put error: %v", err)
		}
		ids = append(ids, id)
	}

	if _, err := s.Get(ctx, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected the oldest entry to be evicted, got %v", err)
	}
	if _, err := s.GetByKey(ctx, "k0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected the evicted key to be forgotten, got %v", err)
	}
	if _, err := s.Get(ctx, ids[2]); err != nil {
		t.Errorf("Expected the newest entry to be kept, got %v", err)
	}
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(mr.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}
	defer s.Close()

	id, err := s.Put(ctx, sample("ttl"))
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected the derivative to expire, got %v", err)
	}
	if _, err := s.GetByKey(ctx, "ttl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected the key to expire, got %v", err)
	}
}

func TestNew(t *testing.T) {
	s, err := New(Config{Type: "memory", Capacity: 4})
	if err != nil {
		t.Fatalf("New(memory) error: %v", err)
	}
	_ = s.Close()

	s, err = New(Config{Type: "sqlite", ConnectionString: ":memory:"})
	if err != nil {
		t.Fatalf("New(sqlite) error: %v", err)
	}
	_ = s.Close()

	if _, err := New(Config{Type: "postgres"}); err == nil {
		t.Error("Expected error for an unsupported store type")
	}
}
