package util

import (
	"net/http"
	"strings"
)

// publicReadPrefixes are listing endpoints whose anonymous GET responses are
// identical for every visitor.
var publicReadPrefixes = []string{"/api/jobs", "/api/companies"}

// WithSecurityHeaders adds the job board's response security headers.
// Anonymous reads of public listings may be cached briefly; anything carrying
// credentials, and every write, is marked no-store.
func WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")
		h.Set("Cross-Origin-Resource-Policy", "same-site")
		h.Add("Vary", "Authorization")
		h.Set("Cache-Control", cachePolicy(r))

		if r.TLS != nil || strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https") {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func cachePolicy(r *http.Request) string {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return "no-store"
	}
	if r.Header.Get("Authorization") != "" || r.Header.Get("Cookie") != "" {
		return "no-store"
	}
	// HR dashboards and applicant lists are never public.
	if r.URL.Path == "/api/jobs/my" || strings.HasSuffix(r.URL.Path, "/applicants") {
		return "no-store"
	}
	for _, prefix := range publicReadPrefixes {
		if r.URL.Path == prefix || strings.HasPrefix(r.URL.Path, prefix+"/") {
			return "public, max-age=30"
		}
	}
	return "no-store"
}
