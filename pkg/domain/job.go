package domain

import (
	"slices"
	"time"
)

type JobStatus string

const (
	JobDraft     JobStatus = "draft"
	JobPublished JobStatus = "published"
	JobClosed    JobStatus = "closed"
	JobArchived  JobStatus = "archived"
)

type ApplyType string

const (
	ApplyInternal ApplyType = "internal"
	ApplyExternal ApplyType = "external"
)

var (
	ExperienceLevels = []string{"0-1", "1-3", "3-5", "5-8", "8+"}
	JobTypes         = []string{"full_time", "part_time", "freelance", "temporary", "internship", "apprenticeship"}
	WorkModes        = []string{"onsite", "remote", "hybrid", "work from home", "field work"}
	CompanySizes     = []string{"1-10", "11-50", "51-200", "201-500", "500+"}
)

const (
	DefaultJobType        = "full_time"
	DefaultWorkMode       = "onsite"
	DefaultSalaryCurrency = "inr"
)

type Job struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Responsibilities  []string   `json:"responsibilities"`
	Requirements      []string   `json:"requirements"`
	Skills            []string   `json:"skills"`
	ExperienceLevel   string     `json:"experienceLevel,omitempty"`
	JobType           string     `json:"jobType"`
	WorkMode          string     `json:"workMode"`
	Location          string     `json:"location"`
	MinSalary         *int64     `json:"minSalary"`
	MaxSalary         *int64     `json:"maxSalary"`
	SalaryCurrency    string     `json:"salaryCurrency"`
	ApplyType         ApplyType  `json:"applyType"`
	ApplyURL          *string    `json:"applyUrl"`
	CompanyName       string     `json:"companyName,omitempty"`
	CompanyID         *string    `json:"companyId"`
	PostedBy          string     `json:"postedBy"`
	Slug              string     `json:"slug"`
	Status            JobStatus  `json:"status"`
	IsActive          bool       `json:"isActive"`
	IsApproved        bool       `json:"isApproved"`
	IsFeatured        bool       `json:"isFeatured"`
	ExpiryDate        *time.Time `json:"expiryDate"`
	ClosedAt          *time.Time `json:"closedAt,omitempty"`
	ArchivedAt        *time.Time `json:"archivedAt,omitempty"`
	TotalViews        int64      `json:"totalViews"`
	TotalApplications int64      `json:"totalApplications"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Listed reports whether the job is visible in public listings.
func (j Job) Listed() bool {
	return j.IsActive && j.IsApproved
}

// Expired reports whether the job expiry date lies before now.
func (j Job) Expired(now time.Time) bool {
	return j.ExpiryDate != nil && j.ExpiryDate.Before(now)
}

// JobStats aggregates an owner's postings for the dashboard view.
type JobStats struct {
	Total             int64 `json:"total"`
	Draft             int64 `json:"draft"`
	Published         int64 `json:"published"`
	Closed            int64 `json:"closed"`
	Archived          int64 `json:"archived"`
	Featured          int64 `json:"featured"`
	TotalViews        int64 `json:"totalViews"`
	TotalApplications int64 `json:"totalApplications"`
}

type Company struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Logo         string    `json:"logo,omitempty"`
	Website      string    `json:"website,omitempty"`
	Industry     string    `json:"industry,omitempty"`
	Size         string    `json:"size,omitempty"`
	Headquarters string    `json:"headquarters,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CompanySummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Logo    string `json:"logo,omitempty"`
	Website string `json:"website,omitempty"`
}

func (c Company) Summary() CompanySummary {
	return CompanySummary{ID: c.ID, Name: c.Name, Logo: c.Logo, Website: c.Website}
}

type ApplicationStatus string

const (
	ApplicationApplied     ApplicationStatus = "applied"
	ApplicationReviewed    ApplicationStatus = "reviewed"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationSelected    ApplicationStatus = "selected"
)

type Application struct {
	ID           string            `json:"id"`
	JobID        string            `json:"jobId"`
	CandidateID  string            `json:"candidateId"`
	ResumeURL    string            `json:"resumeUrl"`
	CoverLetter  string            `json:"coverLetter,omitempty"`
	Status       ApplicationStatus `json:"status"`
	HRNotes      string            `json:"hrNotes,omitempty"`
	IsViewedByHR bool              `json:"isViewedByHR"`
	AppliedAt    time.Time         `json:"appliedAt"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Applicant is an application joined with the candidate's public profile.
type Applicant struct {
	Application
	Candidate UserSummary `json:"candidate"`
}

// ValidEnum reports whether value is one of allowed.
func ValidEnum(allowed []string, value string) bool {
	return slices.Contains(allowed, value)
}
