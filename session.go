package mosession

import (
	"sort"
	"time"

	"github.com/bayazee/mosession/codec"
)

// Session is the per-request view of one visitor's server-side state.
//
// A Session belongs to exactly one request between [Engine.Begin] and
// [Engine.End] and is not safe for concurrent use; concurrency is handled
// at the Engine and Store layers, where the last completed save wins.
type Session struct {
	id       string
	data     map[string]any
	loadedAt time.Time

	isNew     bool
	dirty     bool
	destroyed bool
	permanent bool
	// issueToken forces End to re-issue the client token even without a
	// fresh allocation: set after Regenerate and on permanence changes
	// (the token's own lifetime must follow the record's).
	issueToken bool
	// ephemeral marks a session created because the backend was unreachable
	// at Begin (non-strict mode). It lives for this request only and is
	// never persisted or issued a token.
	ephemeral bool
}

func newSession(permanent bool) *Session {
	return &Session{
		data:      make(map[string]any),
		loadedAt:  time.Now(),
		isNew:     true,
		permanent: permanent,
	}
}

// ID returns the session identifier, or "" while none is allocated.
// Identifiers are allocated lazily: a fresh session has no ID until the
// first End that actually persists it.
func (s *Session) ID() string { return s.id }

// IsNew reports whether the session was created during this request rather
// than loaded from the backend.
func (s *Session) IsNew() bool { return s.isNew }

// LoadedAt returns when this request's view of the session was created or
// loaded. Useful for request-level age checks such as step-up
// authentication.
func (s *Session) LoadedAt() time.Time { return s.loadedAt }

// Dirty reports whether the session was mutated since Begin.
func (s *Session) Dirty() bool { return s.dirty }

// Destroyed reports whether Destroy was called on this session.
func (s *Session) Destroyed() bool { return s.destroyed }

// Ephemeral reports whether this session exists only because the backend
// was unreachable at Begin. Ephemeral sessions are never persisted.
func (s *Session) Ephemeral() bool { return s.ephemeral }

// Permanent reports whether the session is stored without expiry.
func (s *Session) Permanent() bool { return s.permanent }

// SetPermanent switches the session between permanent (no expiry) and
// TTL-bound storage. Changing it marks the session dirty so the new policy
// reaches the backend.
func (s *Session) SetPermanent(permanent bool) {
	if s.permanent == permanent {
		return
	}
	s.permanent = permanent
	s.dirty = true
	s.issueToken = true
}

// Get returns the value stored under key and whether it was present.
func (s *Session) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

// GetString returns the string stored under key, or "" when absent or not
// a string.
func (s *Session) GetString(key string) string {
	v, _ := s.data[key].(string)
	return v
}

// GetInt returns the integer stored under key, or 0 when absent or not an
// integer. Decoded payloads always carry integers as int64.
func (s *Session) GetInt(key string) int64 {
	switch v := s.data[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// Set stores value under key and marks the session dirty. It fails with
// [codec.ErrInvalidValueType] when value cannot be serialized and with
// [ErrReservedKey] for internal key names, leaving the session unchanged.
func (s *Session) Set(key string, value any) error {
	if len(key) > 0 && key[0] == '~' {
		return ErrReservedKey
	}
	if err := codec.CheckValue(value); err != nil {
		return err
	}
	s.data[key] = value
	s.dirty = true
	return nil
}

// Delete removes key. Deleting an absent key does not mark the session
// dirty.
func (s *Session) Delete(key string) {
	if _, ok := s.data[key]; !ok {
		return
	}
	delete(s.data, key)
	s.dirty = true
}

// Clear removes every key. An already-empty session stays clean.
func (s *Session) Clear() {
	if len(s.data) == 0 {
		return
	}
	s.data = make(map[string]any)
	s.dirty = true
}

// Keys returns the stored keys in sorted order.
func (s *Session) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (s *Session) Len() int { return len(s.data) }

// Data returns a shallow copy of the payload for inspection. Mutating the
// copy does not affect the session.
func (s *Session) Data() map[string]any {
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}
