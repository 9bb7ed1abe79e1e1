package mosession

import "errors"

var (
	// ErrIdentifierCollision is returned when a freshly generated identifier
	// kept colliding with live records past the configured retry budget.
	// With 128-bit identifiers this indicates a broken entropy source or a
	// misbehaving backend, not bad luck.
	ErrIdentifierCollision = errors.New("session identifier collision")
	// ErrNilSession is returned by lifecycle operations handed a nil session.
	ErrNilSession = errors.New("nil session")
	// ErrSessionDestroyed is returned when a destroyed session is passed to
	// an operation that needs a live one.
	ErrSessionDestroyed = errors.New("session already destroyed")
	// ErrEphemeralSession is returned when Regenerate is asked to persist a
	// session that exists only because the backend was unreachable at Begin.
	ErrEphemeralSession = errors.New("ephemeral session cannot be persisted")
	// ErrEngineClosed is returned by lifecycle operations after Close.
	ErrEngineClosed = errors.New("engine closed")
	// ErrReservedKey is returned by Session.Set for keys starting with "~",
	// which are reserved for internal record bookkeeping.
	ErrReservedKey = errors.New("reserved session key")
)
