package app

import (
	"context"
	"sync"
	"testing"

	"jobboard/pkg/domain"
	"jobboard/pkg/mail"
	"jobboard/pkg/storage"
	"jobboard/pkg/store"
	"jobboard/pkg/token"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type testEnv struct {
	app     *App
	store   *store.MemoryStore
	mailer  *recordingMailer
	objects *storage.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithRevoker(t, store.NewMemoryTokenRevoker())
}

func newTestEnvWithRevoker(t *testing.T, revoker token.Revoker) *testEnv {
	t.Helper()
	tokens, err := token.New(token.Options{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		Revoker:       revoker,
	})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	env := &testEnv{
		store:   store.NewMemoryStore(),
		mailer:  &recordingMailer{},
		objects: storage.NewMemoryStore("http://files.test"),
	}
	env.app, err = New(Config{
		Store:       env.store,
		Tokens:      tokens,
		Mailer:      env.mailer,
		Objects:     env.objects,
		FrontendURL: "http://frontend.test/",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return env
}

func (e *testEnv) register(t *testing.T, name, email string, role domain.UserRole) domain.User {
	t.Helper()
	res, err := e.app.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    email,
		Password: "secret123",
		Gender:   "other",
		Address:  "1 Main St",
		UserType: string(role),
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res.User
}

func (e *testEnv) admin(t *testing.T) domain.User {
	t.Helper()
	u := e.register(t, "Root", "root@example.com", domain.RoleCandidate)
	u.Role = domain.RoleAdmin
	if err := e.store.SaveUser(context.Background(), u); err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	return u
}

func TestNewRequiresTokens(t *testing.T) {
	if _, err := New(Config{Store: store.NewMemoryStore()}); err == nil {
		t.Fatal("expected missing token service to be rejected")
	}
}

func TestReadyWithMemoryStore(t *testing.T) {
	env := newTestEnv(t)
	if err := env.app.Ready(context.Background()); err != nil {
		t.Fatalf("ready: %v", err)
	}
}
