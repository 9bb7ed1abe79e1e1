// Package store defines the key-value backend capability the session engine
// persists through, plus the bundled implementations: Memory (reference,
// fake-clock friendly), Redis, Mongo, and Cached (a read-through tier that
// layers one store in front of another).
//
// # Contract
//
// All operations are keyed by the opaque session identifier. Save is an
// atomic per-key upsert with last-writer-wins semantics; Delete is
// idempotent; Create is insert-if-absent so identifier collisions are
// detectable; Touch extends expiry without rewriting the payload and may
// report [ErrTouchUnsupported]. A ttl of zero means no expiry. Expired
// records must behave exactly like absent ones.
//
// # Error discipline
//
// Absence is [ErrNotFound]; connectivity failures wrap [ErrUnavailable] so
// callers can distinguish "no session" from "cannot know". A store never
// invents payload bytes: corrupt-data detection belongs to the codec.
//
// # What this package must NOT do
//
//   - Import mosession (no upward imports).
//   - Interpret payload bytes or enforce session policy.
//   - Scan for expired records; native backend TTL owns reclamation.
package store
