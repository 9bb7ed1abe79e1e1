// Package httpsession adapts the session engine to net/http: a middleware
// brackets every request with Engine.Begin and Engine.End and translates
// the resulting token instruction into Set-Cookie headers.
//
// Handlers reach the request's session through [Session] (or
// mosession.FromContext) and just mutate it; persistence and cookie
// issuance happen after the handler, before the first response byte.
//
// # Architecture boundaries
//
// This package translates HTTP cookie semantics into Engine calls. All
// lifecycle decisions — what to persist, which token to issue — are
// delegated to the Engine.
//
// # What this package must NOT do
//
//   - Touch the backend or the codec directly.
//   - Sign or encrypt cookie values; the token is opaque by construction.
//   - Persist session state after the response body has started; mutate
//     the session before writing the body.
package httpsession
