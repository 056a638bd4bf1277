package store

import (
	"context"
	"errors"
	"time"

	"jobboard/pkg/domain"
	"jobboard/pkg/jobquery"
)

var (
	// ErrNotFound is returned by mutations that target a missing record.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Store defines persistence operations for users, companies, jobs and applications.
type Store interface {
	// users
	CreateUser(ctx context.Context, u domain.User) error
	SaveUser(ctx context.Context, u domain.User) error
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)
	// ConsumePasswordReset sets passwordHash and spends the pending reset
	// token only if tokenHash is still the live, unexpired token. It reports
	// false when another caller spent it first.
	ConsumePasswordReset(ctx context.Context, userID, tokenHash, passwordHash string, now time.Time) (bool, error)

	// companies
	CreateCompany(ctx context.Context, c domain.Company) error
	GetCompany(ctx context.Context, id string) (domain.Company, bool, error)
	ListCompanies(ctx context.Context) ([]domain.Company, error)

	// jobs
	CreateJobs(ctx context.Context, jobs []domain.Job) error
	SaveJob(ctx context.Context, j domain.Job) error
	GetJob(ctx context.Context, id string) (domain.Job, bool, error)
	GetJobBySlug(ctx context.Context, slug string) (domain.Job, bool, error)
	DeleteJob(ctx context.Context, id string) error
	SearchJobs(ctx context.Context, q jobquery.Query) (jobquery.Result, error)
	SuggestJobs(ctx context.Context, term string, limit int) ([]domain.Job, error)
	JobStats(ctx context.Context, ownerID string) (domain.JobStats, error)
	IncrementJobViews(ctx context.Context, id string) (int64, error)
	CloseExpiredJobs(ctx context.Context, now time.Time) (int64, error)

	// applications
	CreateApplication(ctx context.Context, a domain.Application) error
	HasApplication(ctx context.Context, jobID, candidateID string) (bool, error)
	ListApplicants(ctx context.Context, jobID string) ([]domain.Applicant, error)
	CountApplications(ctx context.Context, jobID string) (int64, error)
}
