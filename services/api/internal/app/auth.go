package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"jobboard/internal/util"
	"jobboard/pkg/apperr"
	"jobboard/pkg/auth"
	"jobboard/pkg/domain"
	mailer "jobboard/pkg/mail"
	"jobboard/pkg/store"
	"jobboard/pkg/token"
)

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`
	UserType    string `json:"userType"`
	Designation string `json:"designation"`
}

// AuthResult is returned by every operation that starts a session.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         domain.User
}

// Register creates an account and starts a session.
func (a *App) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	switch {
	case in.Name == "":
		return AuthResult{}, ErrNameRequired
	case in.Email == "":
		return AuthResult{}, ErrEmailRequired
	case in.Password == "":
		return AuthResult{}, ErrPasswordRequired
	case strings.TrimSpace(in.Gender) == "":
		return AuthResult{}, ErrGenderRequired
	case in.Address == "":
		return AuthResult{}, ErrAddressRequired
	}
	if !validEmail(in.Email) {
		return AuthResult{}, ErrInvalidEmail
	}
	if err := validatePassword(in.Password); err != nil {
		return AuthResult{}, err
	}
	gender, ok := domain.ParseGender(in.Gender)
	if !ok {
		return AuthResult{}, ErrInvalidGender
	}
	role := domain.RoleCandidate
	if strings.TrimSpace(in.UserType) != "" {
		parsed, ok := domain.ParseUserRole(in.UserType)
		if !ok || parsed == domain.RoleAdmin {
			return AuthResult{}, ErrInvalidUserType
		}
		role = parsed
	}

	if _, exists, err := a.store.GetUserByEmail(ctx, in.Email); err != nil {
		return AuthResult{}, fmt.Errorf("check email: %w", err)
	} else if exists {
		return AuthResult{}, ErrEmailTaken
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	now := a.clock()
	user := domain.User{
		ID:           util.NewID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Gender:       gender,
		Address:      in.Address,
		Role:         role,
		Designation:  strings.TrimSpace(in.Designation),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}
	util.SecurityEvent(ctx, "register", "user_id", user.ID, "role", string(user.Role))
	return a.issueSession(user)
}

// Login verifies credentials and starts a session.
func (a *App) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return AuthResult{}, ErrEmailRequired
	}
	if password == "" {
		return AuthResult{}, ErrPasswordRequired
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		util.SecurityEvent(ctx, "login_failed", "reason", "invalid_credentials")
		return AuthResult{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		util.SecurityEvent(ctx, "login_failed", "reason", "disabled", "user_id", user.ID)
		return AuthResult{}, ErrAccountDisabled
	}
	util.SecurityEvent(ctx, "login", "user_id", user.ID)
	return a.issueSession(user)
}

// Refresh rotates a refresh token: the presented token is consumed and a new
// pair is issued. A token can be rotated once.
func (a *App) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrRefreshTokenRequired
	}
	claims, err := a.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		if !errors.Is(err, token.ErrInvalidToken) && !errors.Is(err, token.ErrRevoked) {
			return AuthResult{}, fmt.Errorf("verify refresh token: %w", err)
		}
		util.SecurityEvent(ctx, "refresh_failed", "reason", err.Error())
		return AuthResult{}, ErrInvalidRefreshToken
	}
	user, ok, err := a.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		util.SecurityEvent(ctx, "refresh_failed", "reason", "unknown_user", "user_id", claims.UserID)
		return AuthResult{}, ErrInvalidRefreshToken
	}
	if !user.IsActive {
		return AuthResult{}, ErrAccountDisabled
	}
	if err := a.tokens.Consume(claims); err != nil {
		if !errors.Is(err, token.ErrReplayed) {
			return AuthResult{}, fmt.Errorf("consume refresh token: %w", err)
		}
		// Another request rotated this token first. Treat it as replay and
		// end every session of the user, including the pair just minted.
		util.SecurityEvent(ctx, "refresh_replay", "user_id", user.ID)
		if err := a.tokens.RevokeUser(user.ID, a.clock().Add(replayCutoffSlack)); err != nil {
			return AuthResult{}, fmt.Errorf("revoke sessions: %w", err)
		}
		return AuthResult{}, ErrInvalidRefreshToken
	}
	return a.issueSession(user)
}

// replayCutoffSlack pushes the replay cutoff past the second in which the
// winning refresh signs its tokens.
const replayCutoffSlack = 2 * time.Second

// Logout revokes the refresh token when it is still valid. It always succeeds
// for invalid or missing tokens.
func (a *App) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	claims, err := a.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if err := a.tokens.Revoke(claims); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	util.SecurityEvent(ctx, "logout", "user_id", claims.UserID)
	return nil
}

// Authenticate resolves the active user behind an access token.
func (a *App) Authenticate(ctx context.Context, accessToken string) (domain.User, error) {
	claims, err := a.tokens.VerifyAccess(accessToken)
	if err != nil {
		if !errors.Is(err, token.ErrInvalidToken) && !errors.Is(err, token.ErrRevoked) {
			return domain.User{}, fmt.Errorf("verify access token: %w", err)
		}
		return domain.User{}, ErrUnauthorized
	}
	user, ok, err := a.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUnauthorized
	}
	if !user.IsActive {
		return domain.User{}, ErrAccountDisabled
	}
	return user, nil
}

// Profile returns the current state of the authenticated user.
func (a *App) Profile(ctx context.Context, userID string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUnauthorized
	}
	if !user.IsActive {
		return domain.User{}, ErrAccountDisabled
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
// Every token issued before the change stops verifying.
func (a *App) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" {
		return ErrCurrentPasswordRequired
	}
	if next == "" {
		return ErrNewPasswordRequired
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	user, err := a.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(current, user.PasswordHash) {
		util.SecurityEvent(ctx, "password_change_failed", "user_id", user.ID)
		return ErrCurrentPasswordIncorrect
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := a.clock()
	user.PasswordHash = hash
	user.ClearPasswordReset()
	user.UpdatedAt = now
	if err := a.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if err := a.tokens.RevokeUser(user.ID, now); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	util.SecurityEvent(ctx, "password_changed", "user_id", user.ID)
	return nil
}

// ForgotPassword mails a single-use reset link to an existing active user.
// The outcome is indistinguishable for unknown emails.
func (a *App) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !user.IsActive {
		util.SecurityEvent(ctx, "password_reset_requested", "matched", false)
		return nil
	}
	reset, err := auth.GenerateResetToken(a.resetTokenTTL)
	if err != nil {
		return err
	}
	now := a.clock()
	expires := now.Add(a.resetTokenTTL)
	user.PasswordResetTokenHash = reset.Hash
	user.PasswordResetExpiresAt = &expires
	user.PasswordResetUsedAt = nil
	user.UpdatedAt = now
	if err := a.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}
	if a.mailer == nil {
		return apperr.Wrap(apperr.Dependency, ErrResetMailFailed.Message, mailer.ErrNotConfigured)
	}
	link := mailer.ResetPasswordLink(a.frontendURL, reset.Raw, user.Email)
	msg := mailer.ResetPasswordMessage(user.Email, user.Name, link, a.resetTokenTTL)
	if err := a.mailer.Send(ctx, msg); err != nil {
		util.LoggerFromContext(ctx).Error("send reset email failed", "user_id", user.ID, "err", err)
		return apperr.Wrap(apperr.Dependency, ErrResetMailFailed.Message, err)
	}
	util.SecurityEvent(ctx, "password_reset_requested", "matched", true, "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (a *App) ResetPassword(ctx context.Context, email, rawToken, next string) error {
	email = normalizeEmail(email)
	rawToken = strings.TrimSpace(rawToken)
	switch {
	case email == "":
		return ErrEmailRequired
	case rawToken == "":
		return ErrResetTokenRequired
	case next == "":
		return ErrNewPasswordRequired
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	now := a.clock()
	if !ok || !user.IsActive ||
		user.PasswordResetTokenHash == "" ||
		user.PasswordResetExpiresAt == nil ||
		!now.Before(*user.PasswordResetExpiresAt) ||
		user.PasswordResetUsedAt != nil ||
		!auth.VerifyResetToken(user.PasswordResetTokenHash, rawToken) {
		util.SecurityEvent(ctx, "password_reset_failed")
		return ErrInvalidResetToken
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	consumed, err := a.store.ConsumePasswordReset(ctx, user.ID, user.PasswordResetTokenHash, hash, now)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if !consumed {
		util.SecurityEvent(ctx, "password_reset_failed", "reason", "token_spent", "user_id", user.ID)
		return ErrInvalidResetToken
	}
	if err := a.tokens.RevokeUser(user.ID, now); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	util.SecurityEvent(ctx, "password_reset_completed", "user_id", user.ID)
	return nil
}

func (a *App) issueSession(user domain.User) (AuthResult, error) {
	access, err := a.tokens.IssueAccess(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := a.tokens.IssueRefresh(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return AuthResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@")+1:], ".")
}

func validatePassword(password string) error {
	switch err := auth.ValidatePassword(password); {
	case errors.Is(err, auth.ErrPasswordTooShort):
		return ErrPasswordTooShort
	case errors.Is(err, auth.ErrPasswordTooLong):
		return ErrPasswordTooLong
	default:
		return err
	}
}
