package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"jobboard/internal/util"
	"jobboard/pkg/domain"
	"jobboard/pkg/jobquery"
	"jobboard/pkg/store"
)

// JobDetail is a single job with its company and poster resolved.
type JobDetail struct {
	domain.Job
	Company   *domain.CompanySummary `json:"company"`
	Poster    *domain.UserSummary    `json:"poster"`
	IsApplied bool                   `json:"isApplied"`
}

// Pagination describes one page of an owner listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// MyJobsResult is the HR dashboard listing.
type MyJobsResult struct {
	Jobs       []domain.Job    `json:"jobs"`
	Pagination Pagination      `json:"pagination"`
	Stats      domain.JobStats `json:"stats"`
}

// ViewResult reports the outcome of a view registration.
type ViewResult struct {
	Counted    bool  `json:"counted"`
	TotalViews int64 `json:"totalViews"`
}

func canManage(user domain.User, job domain.Job) bool {
	return user.Role == domain.RoleAdmin || job.PostedBy == user.ID
}

// CreateJob validates and stores a single posting.
func (a *App) CreateJob(ctx context.Context, user domain.User, in JobInput) (domain.Job, error) {
	if user.Role != domain.RoleHR {
		return domain.Job{}, ErrHROnly
	}
	job, err := a.buildJob(ctx, user, in, a.clock())
	if err != nil {
		return domain.Job{}, err
	}
	if err := a.store.CreateJobs(ctx, []domain.Job{job}); err != nil {
		return domain.Job{}, fmt.Errorf("create job: %w", err)
	}
	util.LoggerFromContext(ctx).Info("job created", "job_id", job.ID, "status", string(job.Status))
	return job, nil
}

// CreateJobsBulk validates every item first and inserts them all or none.
func (a *App) CreateJobsBulk(ctx context.Context, user domain.User, items []JobInput) ([]domain.Job, error) {
	if user.Role != domain.RoleHR {
		return nil, ErrHROnly
	}
	if len(items) == 0 {
		return nil, ErrBulkEmpty
	}
	if len(items) > MaxBulkJobs {
		return nil, ErrBulkTooLarge
	}
	now := a.clock()
	jobs := make([]domain.Job, 0, len(items))
	for i, in := range items {
		job, err := a.buildJob(ctx, user, in, now)
		if err != nil {
			return nil, bulkItemError(err, i, in.Title)
		}
		jobs = append(jobs, job)
	}
	if err := a.store.CreateJobs(ctx, jobs); err != nil {
		return nil, fmt.Errorf("create jobs: %w", err)
	}
	util.LoggerFromContext(ctx).Info("jobs created", "count", len(jobs), "user_id", user.ID)
	return jobs, nil
}

// findJob resolves a job id, distinguishing malformed and unknown ids.
func (a *App) findJob(ctx context.Context, id string) (domain.Job, error) {
	id = strings.TrimSpace(id)
	if !validID(id) {
		return domain.Job{}, ErrInvalidJobID
	}
	job, ok, err := a.store.GetJob(ctx, id)
	if err != nil {
		return domain.Job{}, fmt.Errorf("fetch job: %w", err)
	}
	if !ok {
		return domain.Job{}, ErrJobNotFound
	}
	return job, nil
}

// managedJob loads a job the user owns, or any job for admins.
func (a *App) managedJob(ctx context.Context, user domain.User, id string) (domain.Job, error) {
	job, err := a.findJob(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if !canManage(user, job) {
		return domain.Job{}, ErrNotJobOwner
	}
	return job, nil
}

// UpdateJob merges the allow-listed fields into an existing posting.
func (a *App) UpdateJob(ctx context.Context, user domain.User, id string, in JobUpdate) (domain.Job, error) {
	job, err := a.managedJob(ctx, user, id)
	if err != nil {
		return domain.Job{}, err
	}
	if job.Status == domain.JobArchived {
		return domain.Job{}, ErrArchivedNoUpdate
	}
	if err := applyUpdate(&job, in); err != nil {
		return domain.Job{}, err
	}
	job.UpdatedAt = a.clock()
	return a.saveJob(ctx, job)
}

// PublishJob moves a draft to published.
func (a *App) PublishJob(ctx context.Context, user domain.User, id string) (domain.Job, error) {
	job, err := a.managedJob(ctx, user, id)
	if err != nil {
		return domain.Job{}, err
	}
	if job.Status != domain.JobDraft {
		return domain.Job{}, ErrOnlyDraftPublishable
	}
	return a.transition(ctx, job, domain.JobPublished)
}

// CloseJob stops a published job from accepting applications.
func (a *App) CloseJob(ctx context.Context, user domain.User, id string) (domain.Job, error) {
	job, err := a.managedJob(ctx, user, id)
	if err != nil {
		return domain.Job{}, err
	}
	switch job.Status {
	case domain.JobArchived:
		return domain.Job{}, ErrArchivedNoClose
	case domain.JobDraft:
		return domain.Job{}, ErrDraftNoClose
	case domain.JobClosed:
		return job, nil
	}
	return a.transition(ctx, job, domain.JobClosed)
}

// ArchiveJob soft-deletes a job. Archiving twice is a no-op.
func (a *App) ArchiveJob(ctx context.Context, user domain.User, id string) (domain.Job, error) {
	job, err := a.managedJob(ctx, user, id)
	if err != nil {
		return domain.Job{}, err
	}
	if job.Status == domain.JobArchived {
		return job, nil
	}
	return a.transition(ctx, job, domain.JobArchived)
}

// DeleteJobPermanently removes a job and its applications. Admin only.
func (a *App) DeleteJobPermanently(ctx context.Context, user domain.User, id string) error {
	if user.Role != domain.RoleAdmin {
		return ErrAdminOnlyDelete
	}
	job, err := a.findJob(ctx, id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteJob(ctx, job.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("delete job: %w", err)
	}
	util.SecurityEvent(ctx, "job_deleted", "job_id", job.ID, "user_id", user.ID)
	return nil
}

func (a *App) transition(ctx context.Context, job domain.Job, to domain.JobStatus) (domain.Job, error) {
	if !domain.CanTransition(job.Status, to) {
		return domain.Job{}, ErrInvalidTransition
	}
	now := a.clock()
	job.Status = to
	job.UpdatedAt = now
	switch to {
	case domain.JobPublished:
		job.IsActive = true
	case domain.JobClosed:
		job.IsActive = false
		job.ClosedAt = &now
	case domain.JobArchived:
		job.IsActive = false
		job.ArchivedAt = &now
	}
	saved, err := a.saveJob(ctx, job)
	if err != nil {
		return domain.Job{}, err
	}
	util.LoggerFromContext(ctx).Info("job status changed", "job_id", job.ID, "status", string(to))
	return saved, nil
}

// saveJob persists job and returns the stored copy with fresh counters.
func (a *App) saveJob(ctx context.Context, job domain.Job) (domain.Job, error) {
	if err := a.store.SaveJob(ctx, job); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Job{}, ErrJobNotFound
		}
		return domain.Job{}, fmt.Errorf("save job: %w", err)
	}
	saved, ok, err := a.store.GetJob(ctx, job.ID)
	if err != nil {
		return domain.Job{}, fmt.Errorf("reload job: %w", err)
	}
	if !ok {
		return domain.Job{}, ErrJobNotFound
	}
	return saved, nil
}

// GetJob returns a job by id. A nil viewer is an anonymous request.
func (a *App) GetJob(ctx context.Context, id string, viewer *domain.User) (JobDetail, error) {
	job, err := a.findJob(ctx, id)
	if err != nil {
		return JobDetail{}, err
	}
	return a.jobDetail(ctx, job, viewer)
}

// GetJobBySlug returns a job by its public slug.
func (a *App) GetJobBySlug(ctx context.Context, slug string, viewer *domain.User) (JobDetail, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return JobDetail{}, ErrJobNotFound
	}
	job, ok, err := a.store.GetJobBySlug(ctx, slug)
	if err != nil {
		return JobDetail{}, fmt.Errorf("fetch job by slug: %w", err)
	}
	if !ok {
		return JobDetail{}, ErrJobNotFound
	}
	return a.jobDetail(ctx, job, viewer)
}

func (a *App) jobDetail(ctx context.Context, job domain.Job, viewer *domain.User) (JobDetail, error) {
	detail := JobDetail{Job: job}
	g, gctx := errgroup.WithContext(ctx)
	if job.CompanyID != nil {
		g.Go(func() error {
			company, ok, err := a.store.GetCompany(gctx, *job.CompanyID)
			if err != nil {
				return fmt.Errorf("fetch company: %w", err)
			}
			if ok {
				summary := company.Summary()
				detail.Company = &summary
			}
			return nil
		})
	}
	g.Go(func() error {
		poster, ok, err := a.store.GetUserByID(gctx, job.PostedBy)
		if err != nil {
			return fmt.Errorf("fetch poster: %w", err)
		}
		if ok {
			summary := poster.Summary()
			detail.Poster = &summary
		}
		return nil
	})
	if viewer != nil && viewer.Role == domain.RoleCandidate {
		g.Go(func() error {
			applied, err := a.store.HasApplication(gctx, job.ID, viewer.ID)
			if err != nil {
				return fmt.Errorf("check application: %w", err)
			}
			detail.IsApplied = applied
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return JobDetail{}, err
	}
	return detail, nil
}

// ListJobs runs the public listing query.
func (a *App) ListJobs(ctx context.Context, v url.Values) (jobquery.Result, error) {
	res, err := a.store.SearchJobs(ctx, jobquery.ParsePublic(v))
	if err != nil {
		return jobquery.Result{}, fmt.Errorf("search jobs: %w", err)
	}
	return res, nil
}

// MyJobs lists the owner's postings with dashboard stats.
func (a *App) MyJobs(ctx context.Context, user domain.User, v url.Values) (MyJobsResult, error) {
	if user.Role != domain.RoleHR {
		return MyJobsResult{}, ErrHROnly
	}
	q := jobquery.ParseOwner(user.ID, v, a.clock())
	var (
		res   jobquery.Result
		stats domain.JobStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res, err = a.store.SearchJobs(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = a.store.JobStats(gctx, user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return MyJobsResult{}, fmt.Errorf("list my jobs: %w", err)
	}
	return MyJobsResult{
		Jobs: res.Jobs,
		Pagination: Pagination{
			Page:       res.Page,
			Limit:      res.Limit,
			Total:      res.Total,
			TotalPages: res.Pages,
		},
		Stats: stats,
	}, nil
}

// Suggest returns distinct titles and skills containing term.
func (a *App) Suggest(ctx context.Context, term string) (jobquery.Suggestions, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return jobquery.Suggestions{Titles: []string{}, Skills: []string{}}, nil
	}
	jobs, err := a.store.SuggestJobs(ctx, term, jobquery.SuggestLimit)
	if err != nil {
		return jobquery.Suggestions{}, fmt.Errorf("suggest jobs: %w", err)
	}
	return jobquery.BuildSuggestions(jobs, term), nil
}

// Featured lists listed, featured, unexpired jobs.
func (a *App) Featured(ctx context.Context, rawLimit string) ([]domain.Job, error) {
	res, err := a.store.SearchJobs(ctx, jobquery.FeaturedQuery(rawLimit, a.clock()))
	if err != nil {
		return nil, fmt.Errorf("featured jobs: %w", err)
	}
	return res.Jobs, nil
}

// RecordJobView counts one view per visitor per dedup window.
func (a *App) RecordJobView(ctx context.Context, jobID, visitorKey string) (ViewResult, error) {
	job, err := a.findJob(ctx, jobID)
	if err != nil {
		return ViewResult{}, err
	}
	visitorKey = strings.TrimSpace(visitorKey)
	if visitorKey == "" {
		visitorKey = "anonymous"
	}
	claimed, err := a.views.Claim(ctx, job.ID, visitorKey)
	if err != nil {
		return ViewResult{}, fmt.Errorf("claim view: %w", err)
	}
	if !claimed {
		return ViewResult{Counted: false, TotalViews: job.TotalViews}, nil
	}
	total, err := a.store.IncrementJobViews(ctx, job.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ViewResult{}, ErrJobNotFound
		}
		return ViewResult{}, fmt.Errorf("increment views: %w", err)
	}
	return ViewResult{Counted: true, TotalViews: total}, nil
}

// CloseExpiredJobs closes every published job whose expiry date has passed.
func (a *App) CloseExpiredJobs(ctx context.Context) error {
	n, err := a.store.CloseExpiredJobs(ctx, a.clock())
	if err != nil {
		return fmt.Errorf("close expired jobs: %w", err)
	}
	if n > 0 {
		util.LoggerFromContext(ctx).Info("expired jobs closed", slog.Int64("count", n))
	}
	return nil
}
