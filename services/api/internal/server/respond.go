package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"jobboard/internal/util"
	"jobboard/pkg/apperr"
)

const (
	refreshCookieName = "refreshToken"
	genericFailure    = "Something went wrong!"
)

// envelope is the response body of every API call.
type envelope struct {
	Result        any    `json:"RESULT,omitempty"`
	Message       string `json:"MESSAGE"`
	Status        int    `json:"STATUS"`
	IsTokenExpire int    `json:"IS_TOKEN_EXPIRE"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeResult(w http.ResponseWriter, result any, msg string) {
	writeJSON(w, http.StatusOK, envelope{Result: result, Message: msg, Status: 1})
}

func writeMessage(w http.ResponseWriter, code, status int, msg string) {
	writeJSON(w, code, envelope{Message: msg, Status: status})
}

// writeError maps an application error to its HTTP status. Errors without
// a kind are logged and masked.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	msg, ok := apperr.Message(err)
	if !ok {
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeMessage(w, http.StatusInternalServerError, 0, genericFailure)
		return
	}
	code := statusFor(apperr.KindOf(err))
	if code >= http.StatusInternalServerError {
		util.LoggerFromContext(r.Context()).Error("dependency failure", "path", r.URL.Path, "err", err)
	}
	writeMessage(w, code, 0, msg)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation, apperr.NotFound, apperr.Conflict:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Dependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeMessage(w, http.StatusRequestEntityTooLarge, 0, "Request body too large")
		case errors.Is(err, io.EOF):
			writeMessage(w, http.StatusBadRequest, 0, "Request body is required")
		default:
			writeMessage(w, http.StatusBadRequest, 0, "Invalid JSON body")
		}
		return false
	}
	return true
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, raw string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    raw,
		Path:     "/",
		MaxAge:   int(s.app.Tokens().RefreshTTL() / time.Second),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil {
		return c.Value
	}
	return ""
}
