package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobboard/internal/util"
	"jobboard/pkg/apperr"
	"jobboard/pkg/domain"
	"jobboard/pkg/jobquery"
)

// MaxBulkJobs caps a single bulk create.
const MaxBulkJobs = 100

// JobInput is the create payload for a single job.
type JobInput struct {
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Responsibilities []string      `json:"responsibilities"`
	Requirements     []string      `json:"requirements"`
	Skills           []string      `json:"skills"`
	ExperienceLevel  string        `json:"experienceLevel"`
	JobType          string        `json:"jobType"`
	WorkMode         string        `json:"workMode"`
	Location         string        `json:"location"`
	MinSalary        *int64        `json:"minSalary"`
	MaxSalary        *int64        `json:"maxSalary"`
	SalaryCurrency   string        `json:"salaryCurrency"`
	ApplyType        string        `json:"applyType"`
	ApplyURL         string        `json:"applyUrl"`
	CompanyID        string        `json:"companyId"`
	CompanyName      string        `json:"companyName"`
	IsFeatured       bool          `json:"isFeatured"`
	ExpiryDate       *FlexibleTime `json:"expiryDate"`
	Status           string        `json:"status"`
}

// JobUpdate lists the fields an owner may edit. Nil fields are left as is;
// the salary bounds are cleared by an explicit null. Everything else on the job (owner, slug, counters, status) is immutable here.
type JobUpdate struct {
	Title            *string       `json:"title"`
	Description      *string       `json:"description"`
	Responsibilities *[]string     `json:"responsibilities"`
	Requirements     *[]string     `json:"requirements"`
	Skills           *[]string     `json:"skills"`
	ExperienceLevel  *string       `json:"experienceLevel"`
	JobType          *string       `json:"jobType"`
	WorkMode         *string       `json:"workMode"`
	Location         *string       `json:"location"`
	MinSalary        OptionalInt64 `json:"minSalary"`
	MaxSalary        OptionalInt64 `json:"maxSalary"`
	SalaryCurrency   *string       `json:"salaryCurrency"`
	ApplyType        *string       `json:"applyType"`
	ApplyURL         *string       `json:"applyUrl"`
	IsFeatured       *bool         `json:"isFeatured"`
	ExpiryDate       *FlexibleTime `json:"expiryDate"`
	IsActive         *bool         `json:"isActive"`
}

// buildJob validates a create payload and produces the job to insert.
func (a *App) buildJob(ctx context.Context, owner domain.User, in JobInput, now time.Time) (domain.Job, error) {
	job := domain.Job{
		ID:               util.NewID(),
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		Location:         strings.TrimSpace(in.Location),
		Responsibilities: trimList(in.Responsibilities),
		Requirements:     trimList(in.Requirements),
		Skills:           jobquery.NormalizeSkills(in.Skills),
		ExperienceLevel:  normalizeValue(in.ExperienceLevel),
		JobType:          normalizeValue(in.JobType),
		WorkMode:         normalizeValue(in.WorkMode),
		MinSalary:        in.MinSalary,
		MaxSalary:        in.MaxSalary,
		SalaryCurrency:   normalizeValue(in.SalaryCurrency),
		ApplyType:        domain.ApplyType(normalizeValue(in.ApplyType)),
		CompanyName:      strings.TrimSpace(in.CompanyName),
		PostedBy:         owner.ID,
		IsApproved:       true,
		IsFeatured:       in.IsFeatured,
		ExpiryDate:       in.ExpiryDate.Ptr(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	switch {
	case job.Title == "":
		return domain.Job{}, ErrTitleRequired
	case job.Description == "":
		return domain.Job{}, ErrDescriptionRequired
	case job.Location == "":
		return domain.Job{}, ErrLocationRequired
	}
	if job.JobType == "" {
		job.JobType = domain.DefaultJobType
	}
	if job.WorkMode == "" {
		job.WorkMode = domain.DefaultWorkMode
	}
	if job.SalaryCurrency == "" {
		job.SalaryCurrency = domain.DefaultSalaryCurrency
	}
	if job.ApplyType == "" {
		job.ApplyType = domain.ApplyInternal
	}
	applyURL := strings.TrimSpace(in.ApplyURL)
	job.ApplyURL = &applyURL
	if err := checkJob(&job); err != nil {
		return domain.Job{}, err
	}

	if id := strings.TrimSpace(in.CompanyID); id != "" {
		company, ok, err := a.store.GetCompany(ctx, id)
		if err != nil {
			return domain.Job{}, fmt.Errorf("fetch company: %w", err)
		}
		if !ok {
			return domain.Job{}, ErrInvalidCompanyID
		}
		job.CompanyID = &company.ID
		if job.CompanyName == "" {
			job.CompanyName = company.Name
		}
	}

	switch status := normalizeValue(in.Status); status {
	case "", string(domain.JobPublished):
		job.Status = domain.JobPublished
		job.IsActive = true
	case string(domain.JobDraft):
		job.Status = domain.JobDraft
		job.IsActive = false
	default:
		return domain.Job{}, ErrInvalidJobStatus
	}
	job.Slug = newSlug(job.Title, now)
	return job, nil
}

// applyUpdate merges the allow-listed fields into job and re-validates it.
func applyUpdate(job *domain.Job, in JobUpdate) error {
	if in.Title != nil {
		if job.Title = strings.TrimSpace(*in.Title); job.Title == "" {
			return ErrTitleRequired
		}
	}
	if in.Description != nil {
		if job.Description = strings.TrimSpace(*in.Description); job.Description == "" {
			return ErrDescriptionRequired
		}
	}
	if in.Location != nil {
		if job.Location = strings.TrimSpace(*in.Location); job.Location == "" {
			return ErrLocationRequired
		}
	}
	if in.Responsibilities != nil {
		job.Responsibilities = trimList(*in.Responsibilities)
	}
	if in.Requirements != nil {
		job.Requirements = trimList(*in.Requirements)
	}
	if in.Skills != nil {
		job.Skills = jobquery.NormalizeSkills(*in.Skills)
	}
	if in.ExperienceLevel != nil {
		job.ExperienceLevel = normalizeValue(*in.ExperienceLevel)
	}
	if in.JobType != nil {
		job.JobType = normalizeValue(*in.JobType)
	}
	if in.WorkMode != nil {
		job.WorkMode = normalizeValue(*in.WorkMode)
	}
	if in.MinSalary.Set {
		job.MinSalary = in.MinSalary.Value
	}
	if in.MaxSalary.Set {
		job.MaxSalary = in.MaxSalary.Value
	}
	if in.SalaryCurrency != nil {
		if c := normalizeValue(*in.SalaryCurrency); c != "" {
			job.SalaryCurrency = c
		}
	}
	if in.ApplyType != nil {
		job.ApplyType = domain.ApplyType(normalizeValue(*in.ApplyType))
	}
	if in.ApplyURL != nil {
		v := strings.TrimSpace(*in.ApplyURL)
		job.ApplyURL = &v
	}
	if in.IsFeatured != nil {
		job.IsFeatured = *in.IsFeatured
	}
	if in.ExpiryDate != nil {
		job.ExpiryDate = in.ExpiryDate.Ptr()
	}
	// Only published jobs toggle visibility; a closed job stays closed.
	if in.IsActive != nil && job.Status == domain.JobPublished {
		job.IsActive = *in.IsActive
	}
	return checkJob(job)
}

// checkJob enforces enum, salary and apply-URL invariants. It normalizes
// ApplyURL: nil for internal jobs, canonical URL for external ones.
func checkJob(job *domain.Job) error {
	if !domain.ValidEnum(domain.JobTypes, job.JobType) {
		return ErrInvalidJobType
	}
	if !domain.ValidEnum(domain.WorkModes, job.WorkMode) {
		return ErrInvalidWorkMode
	}
	if job.ExperienceLevel != "" && !domain.ValidEnum(domain.ExperienceLevels, job.ExperienceLevel) {
		return ErrInvalidExperience
	}
	if job.ApplyType != domain.ApplyInternal && job.ApplyType != domain.ApplyExternal {
		return ErrInvalidApplyType
	}
	if (job.MinSalary != nil && *job.MinSalary < 0) || (job.MaxSalary != nil && *job.MaxSalary < 0) {
		return ErrSalaryNegative
	}
	if job.MinSalary != nil && job.MaxSalary != nil && *job.MaxSalary < *job.MinSalary {
		return ErrSalaryRange
	}
	if job.ApplyType == domain.ApplyInternal {
		job.ApplyURL = nil
		return nil
	}
	if job.ApplyURL == nil || *job.ApplyURL == "" {
		return ErrApplyURLRequired
	}
	normalized, ok := normalizeHTTPURL(*job.ApplyURL)
	if !ok {
		return ErrInvalidApplyURL
	}
	job.ApplyURL = &normalized
	return nil
}

// bulkItemError names the offending item in a bulk create failure.
func bulkItemError(err error, index int, title string) error {
	msg, ok := apperr.Message(err)
	if !ok {
		return err
	}
	label := strings.TrimSpace(title)
	if label == "" {
		label = fmt.Sprintf("#%d", index+1)
	}
	if errors.Is(err, ErrApplyURLRequired) {
		msg = "applyUrl is required for external job"
	} else {
		msg += " for job"
	}
	return apperr.Wrap(apperr.KindOf(err), msg+": "+label, err)
}

func normalizeValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
