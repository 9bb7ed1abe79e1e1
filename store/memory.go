package store

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// Memory is the reference in-process [Store]. Expiry is evaluated lazily
// against an injectable clock, which keeps TTL behavior testable without
// sleeping.
type Memory struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

// SetClock replaces the store's time source. Test hook; not safe to call
// concurrently with store operations.
func (m *Memory) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

func (m *Memory) expired(rec memoryRecord) bool {
	return !rec.expiresAt.IsZero() && !rec.expiresAt.After(m.now())
}

// Load implements [Store].
func (m *Memory) Load(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	rec, ok := m.records[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(rec) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Save may have
		// replaced the record since the read.
		if cur, ok := m.records[id]; ok && m.expired(cur) {
			delete(m.records, id)
		}
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	out := make([]byte, len(rec.data))
	copy(out, rec.data)
	return out, nil
}

// Save implements [Store].
func (m *Memory) Save(_ context.Context, id string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = m.record(data, ttl)
	return nil
}

// Create implements [Store].
func (m *Memory) Create(_ context.Context, id string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[id]; ok && !m.expired(rec) {
		return ErrAlreadyExists
	}
	m.records[id] = m.record(data, ttl)
	return nil
}

// Delete implements [Store].
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// Touch implements [Store].
func (m *Memory) Touch(_ context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || m.expired(rec) {
		delete(m.records, id)
		return ErrNotFound
	}

	if ttl <= 0 {
		rec.expiresAt = time.Time{}
	} else {
		rec.expiresAt = m.now().Add(ttl)
	}
	m.records[id] = rec
	return nil
}

// Ping implements [Store]. An in-memory store is always available.
func (m *Memory) Ping(context.Context) (time.Duration, error) {
	return 0, nil
}

// Len returns the number of records currently held, including records whose
// expiry has passed but which have not been lazily reclaimed yet.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) record(data []byte, ttl time.Duration) memoryRecord {
	rec := memoryRecord{data: make([]byte, len(data))}
	copy(rec.data, data)
	if ttl > 0 {
		rec.expiresAt = m.now().Add(ttl)
	}
	return rec
}
