package httpsession

import (
	"net/http"
	"time"

	mosession "github.com/bayazee/mosession"
)

// Options tunes the cookie attributes the middleware emits. The cookie
// name always comes from the engine configuration.
type Options struct {
	// Path defaults to "/".
	Path   string
	Domain string
	// HttpOnly defaults to true; set AllowScriptAccess to expose the
	// cookie to JavaScript.
	AllowScriptAccess bool
	Secure            bool
	SameSite          http.SameSite
	// PermanentMaxAge is the cookie lifetime used for permanent sessions
	// (record TTL zero). Defaults to 400 days, the longest lifetime
	// current browsers honor.
	PermanentMaxAge time.Duration
	// OnError handles Begin/End failures that occur before the response
	// has started. Defaults to a plain 500.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

func (o Options) withDefaults() Options {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	if o.PermanentMaxAge <= 0 {
		o.PermanentMaxAge = 400 * 24 * time.Hour
	}
	if o.OnError == nil {
		o.OnError = func(w http.ResponseWriter, r *http.Request, _ error) {
			http.Error(w, "session error", http.StatusInternalServerError)
		}
	}
	return o
}

// Session returns the session attached to the request by [Middleware],
// or nil when the request was not wrapped.
func Session(r *http.Request) *mosession.Session {
	return mosession.FromContext(r.Context())
}

// Middleware brackets every request with Begin and End. The session is
// persisted, and its cookie written, right before the first response
// byte; mutations made after the handler starts writing the body are
// lost.
func Middleware(engine *mosession.Engine, opts Options) func(http.Handler) http.Handler {
	opts = opts.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(engine.CookieName()); err == nil {
				token = cookie.Value
			}

			session, err := engine.Begin(r.Context(), token)
			if err != nil {
				opts.OnError(w, r, err)
				return
			}

			sw := &sessionWriter{ResponseWriter: w}
			sw.finish = func() {
				instr, err := engine.End(r.Context(), session)
				if err != nil {
					// finish runs before the first response byte, so the
					// error handler still owns the response. The handler's
					// pending output is suppressed: a 200 for a lost write
					// would be a lie.
					sw.failed = true
					opts.OnError(w, r, err)
					return
				}
				applyInstruction(w, instr, opts)
			}

			next.ServeHTTP(sw, r.WithContext(mosession.NewContext(r.Context(), session)))
			sw.finishOnce()
		})
	}
}

func applyInstruction(w http.ResponseWriter, instr mosession.Instruction, opts Options) {
	switch instr.Op {
	case mosession.OpSetToken:
		maxAge := opts.PermanentMaxAge
		if instr.TTL > 0 {
			maxAge = instr.TTL
		}
		http.SetCookie(w, &http.Cookie{
			Name:     instr.Name,
			Value:    instr.Token,
			Path:     opts.Path,
			Domain:   opts.Domain,
			MaxAge:   int(maxAge.Seconds()),
			HttpOnly: !opts.AllowScriptAccess,
			Secure:   opts.Secure,
			SameSite: opts.SameSite,
		})
	case mosession.OpUnsetToken:
		http.SetCookie(w, &http.Cookie{
			Name:     instr.Name,
			Value:    "",
			Path:     opts.Path,
			Domain:   opts.Domain,
			MaxAge:   -1,
			HttpOnly: !opts.AllowScriptAccess,
			Secure:   opts.Secure,
			SameSite: opts.SameSite,
		})
	}
}

// sessionWriter runs finish exactly once, just before the first header or
// body write (including Flush), so Set-Cookie can still make it onto the
// wire. When finish reports a failure the handler's own output is
// discarded; the error handler has already written the response.
type sessionWriter struct {
	http.ResponseWriter
	finish   func()
	finished bool
	failed   bool
}

func (s *sessionWriter) finishOnce() {
	if s.finished {
		return
	}
	s.finished = true
	s.finish()
}

func (s *sessionWriter) WriteHeader(statusCode int) {
	s.finishOnce()
	if s.failed {
		return
	}
	s.ResponseWriter.WriteHeader(statusCode)
}

func (s *sessionWriter) Write(p []byte) (int, error) {
	s.finishOnce()
	if s.failed {
		return len(p), nil
	}
	return s.ResponseWriter.Write(p)
}

func (s *sessionWriter) Flush() {
	s.finishOnce()
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
