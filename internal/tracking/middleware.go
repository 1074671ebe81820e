package tracking

import (
	"context"
	"net"
	"net/http"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/ops-console/internal/logging"
	"github.com/ziadkadry99/ops-console/internal/metrics"
)

// SessionCookie carries the anonymous visit session id.
const SessionCookie = "opsconsole_session"

// MiddlewareOptions configures Middleware.
type MiddlewareOptions struct {
	// Exclude holds doublestar patterns matched against the request path.
	Exclude []string
	// Actor resolves the authenticated actor; nil records every visit as
	// anonymous.
	Actor  func(*http.Request) *string
	Logger *logging.Logger
}

// Middleware records one Hit per handled request. Recording failures are
// logged and never affect the response.
func Middleware(store *Store, opts MiddlewareOptions) func(http.Handler) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excluded(opts.Exclude, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			session := sessionID(w, r)
			next.ServeHTTP(w, r)

			ua := r.UserAgent()
			hit := Hit{
				SessionID: session,
				Route:     routeOf(r),
				Method:    r.Method,
				Device:    Device(ua),
				Browser:   Browser(ua),
				IPAddress: clientIP(r),
			}
			if ua != "" {
				hit.UserAgent = &ua
			}
			if opts.Actor != nil {
				hit.ActorID = opts.Actor(r)
			}

			// The visit is recorded even when the client has gone away.
			ctx := context.WithoutCancel(r.Context())
			if _, err := store.Record(ctx, hit); err != nil {
				metrics.HitsRecorded.WithLabelValues("failed").Inc()
				log.Warn(ctx, "recording route visit", zap.String("route", hit.Route), zap.Error(err))
				return
			}
			metrics.HitsRecorded.WithLabelValues("recorded").Inc()
		})
	}
}

func excluded(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// routeOf prefers the matched chi pattern so /suppliers/7 and
// /suppliers/8 are the same route.
func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func clientIP(r *http.Request) *string {
	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if addr == "" {
		return nil
	}
	return &addr
}
