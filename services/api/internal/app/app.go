package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobboard/pkg/mail"
	"jobboard/pkg/storage"
	"jobboard/pkg/store"
	"jobboard/pkg/token"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	Store         store.Store
	Tokens        *token.Service
	Views         store.ViewDeduper
	Mailer        mail.Sender
	Objects       storage.ObjectStore
	FrontendURL   string
	ResetTokenTTL time.Duration
	JobViewTTL    time.Duration
	ResumeURLTTL  time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// App implements the auth and job workflows on top of the store.
type App struct {
	store         store.Store
	tokens        *token.Service
	views         store.ViewDeduper
	mailer        mail.Sender
	objects       storage.ObjectStore
	frontendURL   string
	resetTokenTTL time.Duration
	resumeURLTTL  time.Duration
	now           func() time.Time
}

// New constructs the application. A nil Store is replaced by a Postgres
// store opened from DatabaseURL.
func New(cfg Config) (*App, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token service required")
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 15 * time.Minute
	}
	if cfg.JobViewTTL <= 0 {
		cfg.JobViewTTL = time.Hour
	}
	if cfg.ResumeURLTTL <= 0 {
		cfg.ResumeURLTTL = 15 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	views := cfg.Views
	if views == nil {
		views = store.NewMemoryViewDeduper(cfg.JobViewTTL)
	}

	return &App{
		store:         dataStore,
		tokens:        cfg.Tokens,
		views:         views,
		mailer:        cfg.Mailer,
		objects:       cfg.Objects,
		frontendURL:   strings.TrimRight(strings.TrimSpace(cfg.FrontendURL), "/"),
		resetTokenTTL: cfg.ResetTokenTTL,
		resumeURLTTL:  cfg.ResumeURLTTL,
		now:           cfg.Now,
	}, nil
}

// Tokens exposes the token service for request authentication.
func (a *App) Tokens() *token.Service {
	return a.tokens
}

// Ready reports whether the backing store is reachable.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (a *App) clock() time.Time {
	return a.now().UTC()
}
