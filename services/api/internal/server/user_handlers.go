package server

import (
	"errors"
	"net/http"

	"jobboard/pkg/domain"
	"jobboard/services/api/internal/app"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// sessionResponse carries the access token; the refresh token travels only
// in the HttpOnly cookie.
type sessionResponse struct {
	AccessToken string      `json:"accessToken"`
	User        domain.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req app.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.app.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.setRefreshCookie(w, res.RefreshToken)
	writeResult(w, sessionResponse{AccessToken: res.AccessToken, User: res.User}, "Registration successful")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.app.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.setRefreshCookie(w, res.RefreshToken)
	writeResult(w, sessionResponse{AccessToken: res.AccessToken, User: res.User}, "Login successful")
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Refresh(r.Context(), refreshTokenFromRequest(r))
	if err != nil {
		if errors.Is(err, app.ErrInvalidRefreshToken) || errors.Is(err, app.ErrAccountDisabled) {
			s.clearRefreshCookie(w)
		}
		writeError(w, r, err)
		return
	}
	s.setRefreshCookie(w, res.RefreshToken)
	writeResult(w, sessionResponse{AccessToken: res.AccessToken, User: res.User}, "Access token refreshed")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := s.app.Logout(r.Context(), refreshTokenFromRequest(r))
	s.clearRefreshCookie(w)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, 1, "Logout successful")
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, user domain.User) {
	writeResult(w, map[string]domain.User{"user": user}, "User profile fetched")
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.app.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, 1, "Password changed successfully")
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.app.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, 1, "If that email exists, a reset link has been sent.")
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.app.ResetPassword(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, 1, "Password updated successfully")
}

func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request, user domain.User) {
	if user.Role != domain.RoleCandidate {
		writeError(w, r, app.ErrResumeCandidateOnly)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxResumeBytes)
	if err := r.ParseMultipartForm(maxResumeBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, app.ErrResumeTooLarge)
			return
		}
		writeMessage(w, http.StatusBadRequest, 0, "Invalid form data")
		return
	}
	defer r.MultipartForm.RemoveAll()
	file, header, err := r.FormFile("resume")
	if err != nil {
		writeError(w, r, app.ErrResumeRequired)
		return
	}
	defer file.Close()
	res, err := s.app.UploadResume(r.Context(), user, header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res, "Resume uploaded successfully")
}
