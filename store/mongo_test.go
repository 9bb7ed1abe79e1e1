package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// Mongo tests need a running server; they are skipped unless MONGODB_URL is
// set (e.g. MONGODB_URL=mongodb://localhost:27017 go test ./store).
func newMongoStoreTest(t *testing.T) *Mongo {
	t.Helper()

	uri := os.Getenv("MONGODB_URL")
	if uri == "" {
		t.Skip("MONGODB_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m, err := DialMongo(ctx, MongoOptions{
		URI:             uri,
		Database:        "mosession_test",
		Collection:      "sessions",
		ConnectAttempts: 5,
		ConnectDelay:    100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("dial mongo: %v", err)
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	t.Cleanup(func() {
		_ = m.Close(context.Background())
	})
	return m
}

func TestMongoSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	m := newMongoStoreTest(t)

	id := "sid-" + time.Now().Format("150405.000000000")
	if err := m.Save(ctx, id, []byte("payload"), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := m.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected payload %q", data)
	}

	if err := m.Delete(ctx, id); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := m.Delete(ctx, id); err != nil {
		t.Fatalf("second delete should be idempotent: %v", err)
	}
	if _, err := m.Load(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMongoCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	m := newMongoStoreTest(t)

	id := "sid-dup-" + time.Now().Format("150405.000000000")
	if err := m.Create(ctx, id, []byte("a"), time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}
	defer m.Delete(ctx, id)

	if err := m.Create(ctx, id, []byte("b"), time.Hour); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestMongoLazyExpiry(t *testing.T) {
	ctx := context.Background()
	m := newMongoStoreTest(t)

	// A record whose expiry already passed must read as absent even before
	// the TTL monitor sweeps it.
	id := "sid-exp-" + time.Now().Format("150405.000000000")
	if err := m.Save(ctx, id, []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("save: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := m.Load(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired record, got %v", err)
	}
}
