package httpapi

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs one structured line per request (method, path,
// status, duration, request id) at info level, mirroring the
// production-profile server logger's JSON output.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http_request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Recoverer catches a panic in any downstream handler, logs it with a
// stack trace, and responds with 500 INTERNAL — the HTTP-layer half of
// spec §7's "panics in worker tasks are caught at the task boundary
// and reported as Fatal on the owning resource".
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("http_handler_panic",
						zap.String("request_id", middleware.GetReqID(r.Context())),
						zap.Any("panic", rec),
						zap.ByteString("stack", debug.Stack()),
					)
					WriteError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// userIDContextKey is the context key AuthUser stores the
// authenticated caller's user id under.
type userIDContextKey struct{}

// SessionValidator resolves a bearer token to a user id. Implemented
// by internal/server's auth layer over its session store.
type SessionValidator interface {
	ValidateToken(ctx context.Context, token string) (userID string, ok bool)
}

// RequireBearerAuth rejects requests lacking a valid
// "Authorization: Bearer <token>" header with 401 UNAUTHORIZED, and
// otherwise stores the resolved user id in the request context for
// handlers to read via UserIDFromContext.
func RequireBearerAuth(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
				return
			}
			userID, ok := validator.ValidateToken(r.Context(), token)
			if !ok {
				WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid or expired session")
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user id set by
// RequireBearerAuth, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDContextKey{}).(string)
	return v, ok
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return ""
	}
	return header[len(prefix):]
}
