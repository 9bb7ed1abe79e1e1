package mosession

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bayazee/mosession/codec"
	"github.com/bayazee/mosession/store"
)

// permanentPayloadKey carries the per-session permanence flag inside the
// stored payload so it survives across requests. It is stripped on load
// and is not settable through the Session API.
const permanentPayloadKey = "~permanent"

// Engine drives the session lifecycle: resolve a token to a [Session] at
// request start, persist the outcome at request end. Safe for concurrent
// use; each request operates on its own Session.
type Engine struct {
	config  Config
	store   store.Store
	codec   codec.Codec
	audit   *auditDispatcher
	metrics *Metrics

	newToken   func() (string, error)
	validToken func(string) bool

	closers []func(context.Context) error
	closed  atomic.Bool
}

/*
====================================
BEGIN
====================================
*/

// Begin resolves token to a decoded [Session].
//
// A missing, malformed, expired, or undecodable token yields a fresh empty
// session; corrupt records are additionally deleted so they cannot
// resurface. Backend outages yield an error in Strict mode, otherwise an
// ephemeral session that lives for this request only.
func (e *Engine) Begin(ctx context.Context, token string) (*Session, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	start := time.Now()
	s, err := e.begin(ctx, token)
	e.metrics.Observe(MetricBeginLatency, time.Since(start))
	return s, err
}

func (e *Engine) begin(ctx context.Context, token string) (*Session, error) {
	if token == "" || !e.validToken(token) {
		e.metrics.Inc(MetricSessionCreated)
		return newSession(e.config.Session.PermanentByDefault), nil
	}

	data, err := e.store.Load(ctx, token)
	switch {
	case err == nil:
		// fall through to decode
	case errors.Is(err, store.ErrNotFound):
		e.metrics.Inc(MetricSessionMissing)
		e.metrics.Inc(MetricSessionCreated)
		return newSession(e.config.Session.PermanentByDefault), nil
	default:
		e.metrics.Inc(MetricStoreUnavailable)
		e.emit(ctx, AuditEvent{
			EventType: AuditStoreUnavailable,
			SessionID: token,
			Error:     err.Error(),
			Metadata:  map[string]string{"op": "load"},
		})
		if e.config.Session.Strict {
			return nil, err
		}
		s := newSession(e.config.Session.PermanentByDefault)
		s.ephemeral = true
		return s, nil
	}

	payload, err := e.codec.Decode(data)
	if err != nil {
		// Undecodable records are unrecoverable; remove so the same token
		// does not keep tripping over the bad bytes.
		e.metrics.Inc(MetricCorruptPayload)
		e.emit(ctx, AuditEvent{
			EventType: AuditCorruptPayloadRecover,
			SessionID: token,
			Error:     err.Error(),
		})
		_ = e.store.Delete(ctx, token)

		e.metrics.Inc(MetricSessionCreated)
		return newSession(e.config.Session.PermanentByDefault), nil
	}

	permanent := false
	if v, ok := payload[permanentPayloadKey]; ok {
		permanent, _ = v.(bool)
		delete(payload, permanentPayloadKey)
	}

	e.metrics.Inc(MetricSessionLoaded)
	return &Session{
		id:        token,
		data:      payload,
		loadedAt:  time.Now(),
		permanent: permanent,
	}, nil
}

/*
====================================
END
====================================
*/

// End finishes a request: it persists the session if it was mutated and
// returns the [Instruction] the transport must apply to the client's
// token.
//
// Untouched sessions cost zero backend writes unless RefreshOnRead is set,
// which slides the expiry of loaded TTL-bound sessions. Fresh sessions get
// an identifier only here, on their first dirty End.
func (e *Engine) End(ctx context.Context, s *Session) (Instruction, error) {
	if s == nil {
		return None(), ErrNilSession
	}
	if e.closed.Load() {
		return None(), ErrEngineClosed
	}

	if s.destroyed {
		if s.id == "" {
			return None(), nil
		}
		return Instruction{Op: OpUnsetToken, Name: e.config.Token.CookieName}, nil
	}

	if s.ephemeral {
		return None(), nil
	}

	if !s.dirty {
		return e.endClean(ctx, s)
	}
	return e.endDirty(ctx, s)
}

func (e *Engine) endClean(ctx context.Context, s *Session) (Instruction, error) {
	instr := None()
	if s.issueToken && s.id != "" {
		instr = Instruction{
			Op:    OpSetToken,
			Name:  e.config.Token.CookieName,
			Token: s.id,
			TTL:   e.sessionTTL(s),
		}
	}

	if e.config.Session.RefreshOnRead && !s.isNew && !s.permanent && s.id != "" {
		if err := e.touch(ctx, s); err != nil {
			return instr, err
		}
		e.metrics.Inc(MetricSessionTouched)
		e.emit(ctx, AuditEvent{
			EventType: AuditSessionTouched,
			SessionID: s.id,
			Success:   true,
		})
		return instr, nil
	}

	e.metrics.Inc(MetricSessionDiscarded)
	return instr, nil
}

func (e *Engine) touch(ctx context.Context, s *Session) error {
	err := e.store.Touch(ctx, s.id, e.config.Session.TTL)
	if errors.Is(err, store.ErrTouchUnsupported) {
		// Backend cannot refresh in place; rewrite the record instead.
		data, encErr := e.encode(s)
		if encErr != nil {
			return encErr
		}
		err = e.store.Save(ctx, s.id, data, e.config.Session.TTL)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Record expired between Begin and End; nothing left to slide.
			return nil
		}
		e.storeFault(ctx, s.id, "touch", err)
		return err
	}
	return nil
}

func (e *Engine) endDirty(ctx context.Context, s *Session) (Instruction, error) {
	data, err := e.encode(s)
	if err != nil {
		return None(), err
	}
	ttl := e.sessionTTL(s)

	if s.id == "" {
		id, err := e.createWithFreshID(ctx, data, ttl)
		if err != nil {
			return None(), err
		}
		s.id = id
		s.isNew = false
		s.dirty = false

		e.metrics.Inc(MetricSessionSaved)
		e.emit(ctx, AuditEvent{
			EventType: AuditSessionCreated,
			SessionID: id,
			Success:   true,
		})
		return Instruction{
			Op:    OpSetToken,
			Name:  e.config.Token.CookieName,
			Token: id,
			TTL:   ttl,
		}, nil
	}

	if err := e.store.Save(ctx, s.id, data, ttl); err != nil {
		e.storeFault(ctx, s.id, "save", err)
		return None(), err
	}
	s.dirty = false

	e.metrics.Inc(MetricSessionSaved)
	e.emit(ctx, AuditEvent{
		EventType: AuditSessionSaved,
		SessionID: s.id,
		Success:   true,
	})

	if s.issueToken {
		return Instruction{
			Op:    OpSetToken,
			Name:  e.config.Token.CookieName,
			Token: s.id,
			TTL:   ttl,
		}, nil
	}
	return None(), nil
}

// createWithFreshID allocates an unused identifier and writes the record
// under it atomically, retrying on collisions up to the configured budget.
func (e *Engine) createWithFreshID(ctx context.Context, data []byte, ttl time.Duration) (string, error) {
	for attempt := 0; attempt < e.config.Token.CollisionRetries; attempt++ {
		id, err := e.newToken()
		if err != nil {
			return "", err
		}

		err = e.store.Create(ctx, id, data, ttl)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, store.ErrAlreadyExists) {
			e.metrics.Inc(MetricIdentifierCollision)
			e.emit(ctx, AuditEvent{
				EventType: AuditIdentifierCollision,
				SessionID: id,
			})
			continue
		}
		e.storeFault(ctx, id, "create", err)
		return "", err
	}
	return "", fmt.Errorf("%w: %d attempts exhausted", ErrIdentifierCollision, e.config.Token.CollisionRetries)
}

/*
====================================
REGENERATE / DESTROY
====================================
*/

// Regenerate moves the session to a fresh identifier while keeping its
// payload: the current state is written under a new identifier first, then
// the old record is removed. On a failed write the session keeps its old
// identifier and the old record stays intact. Call it on privilege changes
// (login) so a pre-auth token never addresses a post-auth session.
func (e *Engine) Regenerate(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrNilSession
	}
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if s.destroyed {
		return ErrSessionDestroyed
	}
	if s.ephemeral {
		return ErrEphemeralSession
	}

	data, err := e.encode(s)
	if err != nil {
		return err
	}
	ttl := e.sessionTTL(s)

	newID, err := e.createWithFreshID(ctx, data, ttl)
	if err != nil {
		return err
	}

	oldID := s.id
	s.id = newID
	s.isNew = false
	s.dirty = false
	s.issueToken = true

	e.metrics.Inc(MetricSessionRegenerated)
	e.emit(ctx, AuditEvent{
		EventType: AuditSessionRegenerated,
		SessionID: newID,
		Success:   true,
		Metadata:  map[string]string{"previous_id": oldID},
	})

	if oldID == "" {
		return nil
	}
	if err := e.store.Delete(ctx, oldID); err != nil && !errors.Is(err, store.ErrNotFound) {
		// The new identifier is live either way; the stale record is left
		// to its TTL and the fault is surfaced.
		e.storeFault(ctx, oldID, "delete", err)
		return err
	}
	return nil
}

// Destroy removes the session's backend record and marks the session dead.
// End afterwards instructs the transport to unset the client's token.
// Destroy is idempotent.
func (e *Engine) Destroy(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrNilSession
	}
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if s.destroyed {
		return nil
	}

	s.data = make(map[string]any)
	s.destroyed = true

	if s.id == "" || s.ephemeral {
		return nil
	}

	if err := e.store.Delete(ctx, s.id); err != nil && !errors.Is(err, store.ErrNotFound) {
		e.storeFault(ctx, s.id, "delete", err)
		return err
	}

	e.metrics.Inc(MetricSessionDestroyed)
	e.emit(ctx, AuditEvent{
		EventType: AuditSessionDestroyed,
		SessionID: s.id,
		Success:   true,
	})
	return nil
}

/*
====================================
OPERATIONS
====================================
*/

// CookieName returns the configured transport token name.
func (e *Engine) CookieName() string {
	return e.config.Token.CookieName
}

// Ping verifies backend connectivity and returns the observed round-trip
// time.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}
	return e.store.Ping(ctx)
}

// Close flushes the audit pipeline and releases backend resources the
// builder created. Lifecycle calls after Close fail with ErrEngineClosed.
func (e *Engine) Close(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.audit.Close()

	var firstErr error
	for _, closeFn := range e.closers {
		if err := closeFn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AuditDropped returns how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the lifecycle counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

/*
====================================
INTERNAL
====================================
*/

func (e *Engine) encode(s *Session) ([]byte, error) {
	if !s.permanent {
		return e.codec.Encode(s.data)
	}
	payload := make(map[string]any, len(s.data)+1)
	for k, v := range s.data {
		payload[k] = v
	}
	payload[permanentPayloadKey] = true
	return e.codec.Encode(payload)
}

// sessionTTL returns the record lifetime for s. Zero means permanent.
func (e *Engine) sessionTTL(s *Session) time.Duration {
	if s.permanent {
		return 0
	}
	return e.config.Session.TTL
}

func (e *Engine) storeFault(ctx context.Context, id, op string, err error) {
	e.metrics.Inc(MetricStoreUnavailable)
	e.emit(ctx, AuditEvent{
		EventType: AuditStoreUnavailable,
		SessionID: id,
		Error:     err.Error(),
		Metadata:  map[string]string{"op": op},
	})
}

func (e *Engine) emit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	e.audit.Emit(ctx, event)
}
