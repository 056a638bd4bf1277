package util

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

type requestActorKey struct{}

// requestActor is filled in by the auth middleware, which runs below the
// logger and only sees a derived request.
type requestActor struct {
	mu     sync.Mutex
	userID string
	role   string
}

// SetRequestActor records the authenticated caller for the request log line.
// It is a no-op outside WithRequestLog.
func SetRequestActor(ctx context.Context, userID, role string) {
	actor, ok := ctx.Value(requestActorKey{}).(*requestActor)
	if !ok {
		return
	}
	actor.mu.Lock()
	actor.userID, actor.role = userID, role
	actor.mu.Unlock()
}

// WithRequestLog emits one structured http_request record per request with
// the matched route, the job the route addresses and the caller when known.
// Server errors log at warn level.
func WithRequestLog(service string, next http.Handler) http.Handler {
	service = strings.TrimSpace(service)
	if service == "" {
		service = "unknown"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		actor := &requestActor{}
		r = r.WithContext(context.WithValue(r.Context(), requestActorKey{}, actor))
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		attrs := []any{
			"component", service,
			"method", r.Method,
			"path", r.URL.Path,
			"route", routeLabel(r),
			"status", status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFromRequest(r),
		}
		if jobID := jobIDFromRoute(r); jobID != "" {
			attrs = append(attrs, "job_id", jobID)
		}
		actor.mu.Lock()
		if actor.userID != "" {
			attrs = append(attrs, "user_id", actor.userID, "role", actor.role)
		}
		actor.mu.Unlock()
		LoggerFromContext(r.Context()).Log(r.Context(), level, "http_request", attrs...)
	})
}

func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

func jobIDFromRoute(r *http.Request) string {
	if !strings.Contains(r.Pattern, "/api/jobs/{id}") {
		return ""
	}
	return r.PathValue("id")
}
