package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"jobboard/internal/util"
	"jobboard/pkg/domain"
	"jobboard/services/api/internal/app"
)

const (
	maxJSONBytes   = 1 << 20
	maxResumeBytes = 5<<20 + 64<<10 // file plus multipart framing
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	CookieSecure   bool
	AllowedOrigins []string
	TrustedProxies *util.TrustedProxies
}

// Server exposes the job board REST API.
type Server struct {
	app          *app.App
	mux          *http.ServeMux
	cookieSecure bool
	origins      []string
	proxies      *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:          cfg.App,
		mux:          http.NewServeMux(),
		cookieSecure: cfg.CookieSecure,
		origins:      cfg.AllowedOrigins,
		proxies:      cfg.TrustedProxies,
	}
	s.routes()
	return s
}

// Router returns the configured handler with security headers and CORS applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("api", util.WithSecurityHeaders(util.WithCORS(s.origins)(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// user
	s.mux.HandleFunc("POST /api/user/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/user/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/user/refresh-token", s.handleRefresh)
	s.mux.HandleFunc("POST /api/user/logout", s.handleLogout)
	s.mux.HandleFunc("POST /api/user/forgotpassword", s.handleForgotPassword)
	s.mux.HandleFunc("POST /api/user/resetpassword", s.handleResetPassword)
	s.mux.Handle("GET /api/user/profile", s.authenticated(s.handleProfile))
	s.mux.Handle("PATCH /api/user/changepassword", s.authenticated(s.handleChangePassword))
	s.mux.Handle("POST /api/user/resume", s.authenticated(s.handleUploadResume))

	// jobs
	s.mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /api/jobs/search/suggest", s.handleSuggest)
	s.mux.HandleFunc("GET /api/jobs/featured", s.handleFeatured)
	s.mux.Handle("GET /api/jobs/my", s.hrOnly(s.handleMyJobs))
	s.mux.Handle("GET /api/jobs/slug/{slug}", s.optionalAuth(s.handleJobBySlug))
	s.mux.Handle("GET /api/jobs/{id}", s.optionalAuth(s.handleGetJob))
	s.mux.HandleFunc("GET /api/jobs/{id}/{action}", s.handleJobQuery)
	s.mux.Handle("POST /api/jobs/create-jobs", s.hrOnly(s.handleCreateJob))
	s.mux.Handle("POST /api/jobs/create-bulkjobs", s.hrOnly(s.handleCreateJobsBulk))
	s.mux.Handle("PATCH /api/jobs/{id}", s.authenticated(s.handleUpdateJob))
	s.mux.Handle("PATCH /api/jobs/{id}/{action}", s.authenticated(s.handleJobAction))
	s.mux.Handle("DELETE /api/jobs/{id}", s.authenticated(s.handleArchiveJob))
	s.mux.Handle("DELETE /api/jobs/{id}/permanent", s.authenticated(s.handleDeleteJob))
	s.mux.Handle("POST /api/jobs/{id}/apply", s.authenticated(s.handleApply))
	s.mux.Handle("POST /api/jobs/{id}/view", s.optionalAuth(s.handleView))

	// companies
	s.mux.Handle("POST /api/companies", s.authenticated(s.handleCreateCompany))
	s.mux.HandleFunc("GET /api/companies", s.handleListCompanies)
	s.mux.HandleFunc("GET /api/companies/{id}", s.handleGetCompany)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.app.Ready(ctx); err != nil {
		util.LoggerFromContext(ctx).Error("readiness check failed", "err", err)
		writeMessage(w, http.StatusServiceUnavailable, 0, "unavailable")
		return
	}
	writeResult(w, map[string]string{"status": "ok"}, "ok")
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

type optionalHandler func(http.ResponseWriter, *http.Request, *domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, 0, "Unauthorized: Missing token")
			return
		}
		user, err := s.app.Authenticate(r.Context(), raw)
		if err != nil {
			if !errors.Is(err, app.ErrUnauthorized) && !errors.Is(err, app.ErrAccountDisabled) {
				util.LoggerFromContext(r.Context()).Error("authenticate failed", "err", err)
			}
			util.SecurityEvent(r.Context(), "authorize_failed", "path", r.URL.Path)
			writeMessage(w, http.StatusUnauthorized, 0, "Unauthorized: Invalid or expired token")
			return
		}
		util.SetRequestActor(r.Context(), user.ID, string(user.Role))
		next(w, r, user)
	})
}

func (s *Server) hrOnly(next authHandler) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if user.Role != domain.RoleHR {
			writeMessage(w, http.StatusForbidden, 0, app.ErrHROnly.Message)
			return
		}
		next(w, r, user)
	})
}

// optionalAuth resolves the caller when a valid bearer token is present and
// serves the request anonymously otherwise.
func (s *Server) optionalAuth(next optionalHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var viewer *domain.User
		if raw, ok := bearerToken(r); ok {
			if user, err := s.app.Authenticate(r.Context(), raw); err == nil {
				viewer = &user
				util.SetRequestActor(r.Context(), user.ID, string(user.Role))
			}
		}
		next(w, r, viewer)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

const maxVisitorIDLen = 128

// visitorKey identifies a viewer for view deduplication.
func (s *Server) visitorKey(r *http.Request, viewer *domain.User) string {
	if viewer != nil {
		return "user:" + viewer.ID
	}
	if id := strings.TrimSpace(r.Header.Get("X-Visitor-Id")); id != "" && len(id) <= maxVisitorIDLen {
		return "visitor:" + id
	}
	return "ip:" + util.ClientIP(r, s.proxies)
}
