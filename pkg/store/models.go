package store

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID                     string `gorm:"primaryKey"`
	Name                   string `gorm:"not null"`
	Email                  string `gorm:"uniqueIndex;not null"`
	PasswordHash           string `gorm:"not null"`
	Gender                 string `gorm:"not null"`
	Address                string `gorm:"not null"`
	Role                   string `gorm:"not null;index"`
	Designation            string
	IsActive               bool `gorm:"not null"`
	PasswordResetTokenHash *string
	PasswordResetExpiresAt *time.Time
	PasswordResetUsedAt    *time.Time
	CreatedAt              time.Time `gorm:"not null"`
	UpdatedAt              time.Time `gorm:"not null"`
}

type CompanyModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	NameKey      string `gorm:"uniqueIndex;not null"`
	Logo         string
	Website      string
	Industry     string
	Size         string
	Headquarters string
	Description  string    `gorm:"type:text"`
	CreatedBy    string    `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type JobModel struct {
	ID                string         `gorm:"primaryKey"`
	Title             string         `gorm:"not null"`
	Description       string         `gorm:"type:text;not null"`
	Responsibilities  datatypes.JSON `gorm:"type:jsonb"`
	Requirements      datatypes.JSON `gorm:"type:jsonb"`
	Skills            pq.StringArray `gorm:"type:text[]"`
	ExperienceLevel   string
	JobType           string `gorm:"not null"`
	WorkMode          string `gorm:"not null"`
	Location          string `gorm:"not null"`
	MinSalary         *int64
	MaxSalary         *int64
	SalaryCurrency    string
	ApplyType         string `gorm:"not null"`
	ApplyURL          *string
	CompanyName       string
	CompanyID         *string    `gorm:"index"`
	PostedBy          string     `gorm:"not null;index;uniqueIndex:idx_job_owner_slug"`
	Slug              string     `gorm:"not null;index;uniqueIndex:idx_job_owner_slug"`
	Status            string     `gorm:"not null;index"`
	IsActive          bool       `gorm:"not null"`
	IsApproved        bool       `gorm:"not null"`
	IsFeatured        bool       `gorm:"not null"`
	ExpiryDate        *time.Time `gorm:"index"`
	ClosedAt          *time.Time
	ArchivedAt        *time.Time
	TotalViews        int64     `gorm:"not null"`
	TotalApplications int64     `gorm:"not null"`
	CreatedAt         time.Time `gorm:"not null;index"`
	UpdatedAt         time.Time `gorm:"not null"`
}

type ApplicationModel struct {
	ID           string    `gorm:"primaryKey"`
	JobID        string    `gorm:"not null;index;uniqueIndex:idx_application_job_candidate"`
	CandidateID  string    `gorm:"not null;index;uniqueIndex:idx_application_job_candidate"`
	ResumeURL    string    `gorm:"not null"`
	CoverLetter  string    `gorm:"type:text"`
	Status       string    `gorm:"not null"`
	HRNotes      string    `gorm:"type:text"`
	IsViewedByHR bool      `gorm:"not null"`
	AppliedAt    time.Time `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
