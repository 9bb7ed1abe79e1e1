package mosession

import "context"

type sessionContextKey struct{}

// NewContext returns a copy of ctx carrying s. Transport adapters attach
// the request's session here so handlers reach it without plumbing.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext returns the session attached by NewContext, or nil when the
// request was not bracketed by a session adapter.
func FromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}
