package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"jobboard/pkg/apperr"
	"jobboard/pkg/domain"
	"jobboard/pkg/store"
)

func TestRegisterThenLoginIssuesFreshTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg, err := env.app.Register(ctx, RegisterInput{
		Name:     "Ada",
		Email:    "  Ada@Example.com ",
		Password: "secret123",
		Gender:   "Female",
		Address:  "London",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User.Email != "ada@example.com" || reg.User.Role != domain.RoleCandidate {
		t.Fatalf("unexpected user: %+v", reg.User)
	}
	login, err := env.app.Login(ctx, "ADA@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.AccessToken == reg.AccessToken {
		t.Fatal("expected a different access token after login")
	}
	user, err := env.app.Authenticate(ctx, login.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != reg.User.ID {
		t.Fatalf("authenticated %s, want %s", user.ID, reg.User.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := RegisterInput{Name: "A", Email: "a@example.com", Password: "secret123", Gender: "male", Address: "x"}
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		want   error
	}{
		{"missing name", func(in *RegisterInput) { in.Name = " " }, ErrNameRequired},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, ErrInvalidEmail},
		{"short password", func(in *RegisterInput) { in.Password = "abc" }, ErrPasswordTooShort},
		{"bad gender", func(in *RegisterInput) { in.Gender = "robot" }, ErrInvalidGender},
		{"admin self-registration", func(in *RegisterInput) { in.UserType = "admin" }, ErrInvalidUserType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			if _, err := env.app.Register(ctx, in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := env.app.Register(ctx, base); err != nil {
		t.Fatalf("register: %v", err)
	}
	dup := base
	dup.Email = "A@EXAMPLE.COM"
	if _, err := env.app.Register(ctx, dup); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Bo", "bo@example.com", domain.RoleCandidate)
	if _, err := env.app.Login(ctx, "bo@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := env.app.Login(ctx, "nobody@example.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Cy", "cy@example.com", domain.RoleHR)
	login, err := env.app.Login(ctx, "cy@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	rotated, err := env.app.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == login.RefreshToken {
		t.Fatal("expected a new refresh token")
	}
	if _, err := env.app.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected reuse to fail, got %v", err)
	}
	if _, err := env.app.Refresh(ctx, rotated.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected access token to be rejected as refresh token, got %v", err)
	}
}

func TestConcurrentRefreshRotatesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Ivo", "ivo@example.com", domain.RoleCandidate)
	login, err := env.app.Login(ctx, "ivo@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	const workers = 6
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		mu      sync.Mutex
		winners []AuthResult
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := env.app.Refresh(ctx, login.RefreshToken)
			if err != nil {
				if !errors.Is(err, ErrInvalidRefreshToken) {
					t.Errorf("refresh: %v", err)
				}
				return
			}
			mu.Lock()
			winners = append(winners, res)
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()
	if len(winners) != 1 {
		t.Fatalf("token rotated %d times, want 1", len(winners))
	}
}

// lateRevoker hides revocations from the verify step, as when two requests
// both read the token before either claims it.
type lateRevoker struct {
	*store.MemoryTokenRevoker
}

func (lateRevoker) IsRevoked(string) (bool, error) { return false, nil }

func TestRefreshReplayEndsSessions(t *testing.T) {
	env := newTestEnvWithRevoker(t, lateRevoker{store.NewMemoryTokenRevoker()})
	ctx := context.Background()
	env.register(t, "Jo", "jo@example.com", domain.RoleCandidate)
	login, err := env.app.Login(ctx, "jo@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	winner, err := env.app.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if _, err := env.app.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("replayed refresh: %v", err)
	}
	if _, err := env.app.Authenticate(ctx, winner.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("winner access token should be revoked, got %v", err)
	}
	if _, err := env.app.Refresh(ctx, winner.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("winner refresh token should be revoked, got %v", err)
	}
}

func TestSequentialReuseKeepsOtherSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Kai", "kai@example.com", domain.RoleCandidate)
	login, err := env.app.Login(ctx, "kai@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := env.app.Refresh(ctx, login.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := env.app.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("reused token: %v", err)
	}
	if _, err := env.app.Authenticate(ctx, login.AccessToken); err != nil {
		t.Fatalf("rejected reuse must not end the session: %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Di", "di@example.com", domain.RoleCandidate)
	login, err := env.app.Login(ctx, "di@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := env.app.Logout(ctx, login.RefreshToken); err != nil {
			t.Fatalf("logout #%d: %v", i+1, err)
		}
	}
	if err := env.app.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("logout with garbage token: %v", err)
	}
	if _, err := env.app.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected revoked refresh token, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "Ed", "ed@example.com", domain.RoleCandidate)
	if err := env.app.ChangePassword(ctx, u.ID, "nope-nope", "newsecret1"); !errors.Is(err, ErrCurrentPasswordIncorrect) {
		t.Fatalf("expected incorrect current password, got %v", err)
	}
	if err := env.app.ChangePassword(ctx, u.ID, "secret123", "newsecret1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := env.app.Login(ctx, "ed@example.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to fail, got %v", err)
	}
	if _, err := env.app.Login(ctx, "ed@example.com", "newsecret1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestResetTokenVerifiesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Flo", "flo@example.com", domain.RoleCandidate)
	if err := env.app.ForgotPassword(ctx, "FLO@example.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	sent := env.mailer.messages()
	if len(sent) != 1 || sent[0].To != "flo@example.com" {
		t.Fatalf("expected one reset mail, got %+v", sent)
	}
	raw := resetTokenFromMail(t, sent[0].Text)

	if err := env.app.ResetPassword(ctx, "flo@example.com", "wrong-token", "brandnew1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if err := env.app.ResetPassword(ctx, "flo@example.com", raw, "brandnew1"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if err := env.app.ResetPassword(ctx, "flo@example.com", raw, "another1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected second use to fail, got %v", err)
	}
	if _, err := env.app.Login(ctx, "flo@example.com", "brandnew1"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}

func TestConcurrentResetSpendsTokenOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Hana", "hana@example.com", domain.RoleCandidate)
	if err := env.app.ForgotPassword(ctx, "hana@example.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	raw := resetTokenFromMail(t, env.mailer.messages()[0].Text)

	const workers = 8
	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		ok       atomic.Int32
		rejected atomic.Int32
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := env.app.ResetPassword(ctx, "hana@example.com", raw, fmt.Sprintf("parallel%d", i))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrInvalidResetToken):
				rejected.Add(1)
			default:
				t.Errorf("reset %d: %v", i, err)
			}
		}()
	}
	close(start)
	wg.Wait()
	if ok.Load() != 1 || rejected.Load() != workers-1 {
		t.Fatalf("token spent %d times, rejected %d", ok.Load(), rejected.Load())
	}
	user, _, err := env.store.GetUserByEmail(ctx, "hana@example.com")
	if err != nil {
		t.Fatalf("fetch user: %v", err)
	}
	if user.PasswordResetTokenHash != "" || user.PasswordResetUsedAt == nil {
		t.Fatalf("reset state not cleared: %+v", user)
	}
}

func TestForgotPasswordUnknownEmailSendsNothing(t *testing.T) {
	env := newTestEnv(t)
	if err := env.app.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	if n := len(env.mailer.messages()); n != 0 {
		t.Fatalf("expected no mail, got %d", n)
	}
}

func TestForgotPasswordMailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Gus", "gus@example.com", domain.RoleCandidate)
	env.mailer.err = errors.New("smtp down")
	err := env.app.ForgotPassword(context.Background(), "gus@example.com")
	if apperr.KindOf(err) != apperr.Dependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func resetTokenFromMail(t *testing.T, body string) string {
	t.Helper()
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "http") {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(line))
		if err != nil {
			t.Fatalf("parse link: %v", err)
		}
		if u.Path != "/auth/ResetPassword" {
			t.Fatalf("unexpected reset path %q", u.Path)
		}
		return u.Query().Get("token")
	}
	t.Fatalf("no reset link in mail body: %q", body)
	return ""
}
