package httpserver

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"myrestaurants/internal/adapters/observability"
	"myrestaurants/internal/domain"
)

func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return http.TimeoutHandler(next, d, "timeout") }
}

// ---- status-recording ResponseWriter ----

type srw struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *srw) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *srw) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *srw) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if route := rctx.RoutePattern(); route != "" {
			return route
		}
	}
	return r.URL.Path
}

// ---- Metrics middleware ----

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &srw{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		observability.ObserveHTTP(routeOf(r), r.Method, sw.Status(), time.Since(start))
	})
}

// ---- Structured logging middleware ----

func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &srw{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			l.Info().
				Str("route", routeOf(r)).
				Str("method", r.Method).
				Int("status", sw.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", remoteIP(r)).
				Str("ua", r.UserAgent()).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("http_request")
		})
	}
}

// Picks first X-Forwarded-For IP, else X-Real-IP, else RemoteAddr host.
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// ---- Authentication ----

// ActorResolver turns a session token into the actor it was issued to.
// Bad or expired tokens resolve to the anonymous actor.
type ActorResolver interface {
	Actor(token string) domain.Actor
}

type actorKey struct{}

func WithActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the request's actor, anonymous when none was resolved.
func ActorFrom(ctx context.Context) domain.Actor {
	a, _ := ctx.Value(actorKey{}).(domain.Actor)
	return a
}

// Authenticate resolves the actor from a bearer token, falling back to the
// session cookie.
func Authenticate(res ActorResolver, cookie string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if c, err := r.Cookie(cookie); err == nil {
					token = c.Value
				}
			}
			actor := domain.Anonymous()
			if token != "" {
				actor = res.Actor(token)
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// ---- CSRF (double-submit token) ----

const (
	CSRFCookie = "csrftoken"
	CSRFField  = "csrfmiddlewaretoken"
	CSRFHeader = "X-CSRFToken"

	csrfTokenBytes = 32
	csrfMaxAge     = 365 * 24 * 60 * 60
)

type csrfKey struct{}

// CSRFToken returns the token forms rendered for r must echo back.
func CSRFToken(ctx context.Context) string {
	s, _ := ctx.Value(csrfKey{}).(string)
	return s
}

// CSRF hands every page visitor a csrftoken cookie and rejects unsafe
// requests that do not echo it in the csrfmiddlewaretoken field or the
// X-CSRFToken header. API calls are checked only when they ride on the
// session cookie instead of a bearer token.
func CSRF(session string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			api := r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/")
			sent := csrfCookie(r)

			if csrfRequired(r, api, session) && !csrfEchoed(r, sent) {
				log.Warn().Str("path", r.URL.Path).Str("remote", remoteIP(r)).Msg("csrf check failed")
				if api {
					writeProblem(w, http.StatusForbidden, "Forbidden", "CSRF Failed: CSRF token missing or incorrect.")
				} else {
					http.Error(w, "CSRF verification failed. Request aborted.", http.StatusForbidden)
				}
				return
			}

			token := sent
			if token == "" && !api {
				var err error
				if token, err = newCSRFToken(); err != nil {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     CSRFCookie,
					Value:    token,
					Path:     "/",
					MaxAge:   csrfMaxAge,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
		})
	}
}

func csrfRequired(r *http.Request, api bool, session string) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	if !api {
		return true
	}
	if bearerToken(r) != "" {
		return false
	}
	c, err := r.Cookie(session)
	return err == nil && c.Value != ""
}

// csrfCookie returns the visitor's token, or "" when absent or malformed.
func csrfCookie(r *http.Request) string {
	c, err := r.Cookie(CSRFCookie)
	if err != nil || len(c.Value) != 2*csrfTokenBytes {
		return ""
	}
	if _, err := hex.DecodeString(c.Value); err != nil {
		return ""
	}
	return c.Value
}

func csrfEchoed(r *http.Request, want string) bool {
	if want == "" {
		return false
	}
	got := r.Header.Get(CSRFHeader)
	if got == "" {
		got = r.PostFormValue(CSRFField)
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ---- Login throttle ----

const (
	limiterIdle    = 10 * time.Minute
	limiterMaxKeys = 4096
)

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// ipLimiter keeps one token bucket per client address.
type ipLimiter struct {
	mu     sync.Mutex
	rps    rate.Limit
	burst  int
	byAddr map[string]*visitor
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	return &ipLimiter{rps: rate.Limit(rps), burst: burst, byAddr: map[string]*visitor{}}
}

func (l *ipLimiter) allow(addr string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.byAddr) >= limiterMaxKeys {
		for k, v := range l.byAddr {
			if now.Sub(v.seen) > limiterIdle {
				delete(l.byAddr, k)
			}
		}
	}
	v, ok := l.byAddr[addr]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.rps, l.burst)}
		l.byAddr[addr] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1)
}

// Throttle limits POSTs per client address; rejected requests go to reject.
// Other methods pass through.
func Throttle(rps float64, burst int, reject http.HandlerFunc) func(http.Handler) http.Handler {
	l := newIPLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && !l.allow(remoteIP(r), time.Now()) {
				w.Header().Set("Retry-After", "1")
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
