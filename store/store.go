package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load and Touch when no live record exists for
// the identifier.
var ErrNotFound = errors.New("session record not found")

// ErrAlreadyExists is returned by Create when a live record already exists
// under the identifier.
var ErrAlreadyExists = errors.New("session record already exists")

// ErrUnavailable wraps any backend connectivity or I/O failure.
var ErrUnavailable = errors.New("session store unavailable")

// ErrTouchUnsupported is returned by stores that cannot extend expiry
// without rewriting the payload; callers fall back to Load + Save.
var ErrTouchUnsupported = errors.New("touch not supported by this store")

// Store is the backend capability consumed by the session engine.
//
// Implementations must be safe for concurrent use. Per-key atomicity of
// Save/Create/Delete is the store's responsibility; the engine adds no
// locking of its own.
type Store interface {
	// Load returns the stored payload bytes, or ErrNotFound when the
	// record is absent or expired.
	Load(ctx context.Context, id string) ([]byte, error)

	// Save upserts the record and (re)sets its expiry. ttl == 0 stores the
	// record without expiry. Last writer wins; there are no merge semantics.
	Save(ctx context.Context, id string, data []byte, ttl time.Duration) error

	// Create inserts the record only if no live record exists under id,
	// returning ErrAlreadyExists otherwise.
	Create(ctx context.Context, id string, data []byte, ttl time.Duration) error

	// Delete removes the record. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Touch extends the record's expiry without rewriting the payload.
	Touch(ctx context.Context, id string, ttl time.Duration) error

	// Ping reports backend availability and round-trip latency.
	Ping(ctx context.Context) (time.Duration, error)
}
