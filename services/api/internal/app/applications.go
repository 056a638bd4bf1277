package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jobboard/internal/util"
	"jobboard/pkg/domain"
	"jobboard/pkg/store"
)

const resumePrefix = "resumes/"

// ApplyInput is the candidate's application payload.
type ApplyInput struct {
	ResumeURL   string `json:"resumeUrl"`
	CoverLetter string `json:"coverLetter"`
}

// ApplicantCount is the public applicant tally of a job.
type ApplicantCount struct {
	JobID string `json:"jobId"`
	Count int64  `json:"count"`
}

// ApplyToJob records a candidate application and bumps the job counter.
func (a *App) ApplyToJob(ctx context.Context, user domain.User, jobID string, in ApplyInput) (domain.Application, error) {
	if user.Role != domain.RoleCandidate {
		return domain.Application{}, ErrCandidateOnly
	}
	resumeURL := strings.TrimSpace(in.ResumeURL)
	if resumeURL == "" {
		return domain.Application{}, ErrResumeURLRequired
	}
	resumeURL, ok := normalizeResumeRef(user.ID, resumeURL)
	if !ok {
		return domain.Application{}, ErrInvalidResumeURL
	}
	job, err := a.findJob(ctx, jobID)
	if err != nil {
		return domain.Application{}, err
	}
	now := a.clock()
	if !job.Listed() || job.Status != domain.JobPublished {
		return domain.Application{}, ErrJobUnavailable
	}
	if job.Expired(now) {
		return domain.Application{}, ErrJobExpired
	}
	applied, err := a.store.HasApplication(ctx, job.ID, user.ID)
	if err != nil {
		return domain.Application{}, fmt.Errorf("check application: %w", err)
	}
	if applied {
		return domain.Application{}, ErrAlreadyApplied
	}

	application := domain.Application{
		ID:          util.NewID(),
		JobID:       job.ID,
		CandidateID: user.ID,
		ResumeURL:   resumeURL,
		CoverLetter: strings.TrimSpace(in.CoverLetter),
		Status:      domain.ApplicationApplied,
		AppliedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.CreateApplication(ctx, application); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			// Lost the race against a concurrent apply.
			return domain.Application{}, ErrAlreadyApplied
		case errors.Is(err, store.ErrNotFound):
			return domain.Application{}, ErrJobNotFound
		}
		return domain.Application{}, fmt.Errorf("create application: %w", err)
	}
	util.LoggerFromContext(ctx).Info("application submitted", "job_id", job.ID, "user_id", user.ID)
	return application, nil
}

// normalizeResumeRef accepts the candidate's own uploaded object key or an
// absolute http(s) URL.
func normalizeResumeRef(userID, ref string) (string, bool) {
	if strings.HasPrefix(ref, resumePrefix) {
		if !strings.HasPrefix(ref, resumePrefix+userID+"/") || strings.Contains(ref, "..") {
			return "", false
		}
		return ref, true
	}
	return normalizeHTTPURL(ref)
}

// ListApplicants returns a job's applications, newest first. Uploaded
// resumes are exposed through short-lived download links.
func (a *App) ListApplicants(ctx context.Context, user domain.User, jobID string) ([]domain.Applicant, error) {
	job, err := a.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !canManage(user, job) {
		return nil, ErrNotApplicantsViewer
	}
	applicants, err := a.store.ListApplicants(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	if a.objects == nil {
		return applicants, nil
	}
	for i := range applicants {
		key := applicants[i].ResumeURL
		if !strings.HasPrefix(key, resumePrefix) {
			continue
		}
		link, err := a.objects.PresignGet(ctx, key, a.resumeURLTTL)
		if err != nil {
			util.LoggerFromContext(ctx).Warn("presign resume failed", "job_id", job.ID, "err", err)
			continue
		}
		applicants[i].ResumeURL = link
	}
	return applicants, nil
}

// CountApplicants returns the number of applications for a job.
func (a *App) CountApplicants(ctx context.Context, jobID string) (ApplicantCount, error) {
	job, err := a.findJob(ctx, jobID)
	if err != nil {
		return ApplicantCount{}, err
	}
	n, err := a.store.CountApplications(ctx, job.ID)
	if err != nil {
		return ApplicantCount{}, fmt.Errorf("count applications: %w", err)
	}
	return ApplicantCount{JobID: job.ID, Count: n}, nil
}
