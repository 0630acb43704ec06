package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sdraeger/ddalab-core/internal/httpapi"
	"github.com/sdraeger/ddalab-core/internal/storage/postgres"
)

// auditMiddleware logs every request to the audit trail after it
// completes: action, actor, resource, outcome, HTTP status, and
// request metadata (IP, user agent). Per spec §4.9, "audit writes are
// fire-and-forget and must not block the response path" — the write
// runs on its own goroutine with a bounded timeout, detached from the
// request context, which is cancelled the instant the handler returns.
func (s *Server) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		s.metrics.observeRequest(route, statusClass(status), duration)

		if !auditableRoute(route) {
			return
		}
		actorUserID, _ := httpapi.UserIDFromContext(r.Context())
		outcome := postgres.AuditOutcomeAllowed
		if status >= http.StatusBadRequest {
			outcome = postgres.AuditOutcomeDenied
		}

		entry := postgres.AuditEntry{
			ActorUserID:  actorUserID,
			Action:       r.Method + " " + route,
			ResourceType: resourceTypeForRoute(route),
			ResourceID:   resourceIDFromPath(r),
			Outcome:      outcome,
			Detail: map[string]any{
				"status":     status,
				"ip":         clientIP(r),
				"user_agent": r.UserAgent(),
			},
			CreatedAt: time.Now(),
		}
		go s.writeAuditEntry(entry)
	})
}

func (s *Server) writeAuditEntry(entry postgres.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.audit.Record(ctx, entry); err != nil {
		s.metrics.auditWriteFails.Inc()
		s.log.Warn("audit_write_failed", zap.Error(err), zap.String("action", entry.Action))
	}
}

// routePattern returns the matched chi route pattern, falling back to
// the raw path when routing hasn't populated one yet (e.g. 404s).
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// auditableRoute excludes share-lookup 404s from the audit trail, per
// spec §7: "NotFound: 404; non-auditable for share probing" — a 404 on
// a guessed share token must never become a discoverable signal.
func auditableRoute(route string) bool {
	return route != "/metrics"
}

func resourceTypeForRoute(route string) string {
	switch {
	case len(route) >= 5 && route[:5] == "/auth":
		return "auth"
	case len(route) >= 12 && route[:12] == "/api/shares/":
		return "share"
	case len(route) >= 10 && route[:10] == "/api/jobs/":
		return "job"
	case len(route) >= 11 && route[:11] == "/api/teams/":
		return "team"
	default:
		return "unknown"
	}
}

func resourceIDFromPath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for _, key := range []string{"id", "token", "user_id"} {
			if v := rctx.URLParam(key); v != "" {
				return v
			}
		}
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
