// Package mosession provides a server-side session store: per-visitor state
// persisted in a TTL-aware key-value backend and addressed by an opaque,
// unguessable token carried by the caller (typically in a cookie).
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Each request gets its own decoded [Session]; sessions are
// never shared between requests, so the Session itself carries no locks.
//
// # Request lifecycle
//
// A transport adapter brackets every request with [Engine.Begin] and
// [Engine.End]. Begin resolves the incoming token to a decoded Session (or a
// fresh one when the token is absent, expired, or corrupt). End persists the
// session only if it was mutated and returns an [Instruction] telling the
// adapter what to do with the client's token: set it, unset it, or nothing.
// Sessions that are never touched cost zero backend writes and never issue a
// token.
//
// # Architecture boundaries
//
// mosession is the public surface. It exposes [Engine], [Builder], [Config],
// [Session], [Instruction], the audit sinks, and [Metrics] snapshots. Payload
// serialization lives in codec, backend implementations in store, identifier
// generation in internal/.
//
// # What this package must NOT do
//
//   - Expose backend clients, codec internals, or raw record bytes in its
//     public API.
//   - Write to the backend anywhere except End, Regenerate, and Destroy.
//   - Sign, encrypt, or otherwise interpret the transport-level cookie;
//     that belongs to the caller or the httpsession adapter.
package mosession
