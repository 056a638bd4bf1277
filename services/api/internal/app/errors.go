package app

import "jobboard/pkg/apperr"

// Auth workflow.
var (
	ErrNameRequired     = apperr.New(apperr.Validation, "Name is required")
	ErrEmailRequired    = apperr.New(apperr.Validation, "Email is required")
	ErrPasswordRequired = apperr.New(apperr.Validation, "Password is required")
	ErrGenderRequired   = apperr.New(apperr.Validation, "Gender is required")
	ErrAddressRequired  = apperr.New(apperr.Validation, "Address is required")
	ErrInvalidEmail     = apperr.New(apperr.Validation, "Invalid email address")
	ErrPasswordTooShort = apperr.New(apperr.Validation, "Password must be at least 6 characters")
	ErrPasswordTooLong  = apperr.New(apperr.Validation, "Password must be at most 72 bytes")
	ErrInvalidGender    = apperr.New(apperr.Validation, "Invalid gender")
	ErrInvalidUserType  = apperr.New(apperr.Validation, "Invalid userType")
	ErrEmailTaken       = apperr.New(apperr.Conflict, "Email already registered. Please login.")

	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses do not reveal which accounts exist.
	ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "Invalid email or password")
	ErrAccountDisabled    = apperr.New(apperr.Forbidden, "Account is disabled")
	ErrUnauthorized       = apperr.New(apperr.Unauthorized, "Unauthorized")

	ErrRefreshTokenRequired = apperr.New(apperr.Unauthorized, "Refresh token is required")
	ErrInvalidRefreshToken  = apperr.New(apperr.Unauthorized, "Invalid or expired refresh token")

	ErrCurrentPasswordRequired  = apperr.New(apperr.Validation, "Current password is required")
	ErrNewPasswordRequired      = apperr.New(apperr.Validation, "New password is required")
	ErrCurrentPasswordIncorrect = apperr.New(apperr.Validation, "Current password is incorrect")

	ErrResetTokenRequired = apperr.New(apperr.Validation, "Token is required")
	ErrInvalidResetToken  = apperr.New(apperr.Validation, "Invalid or expired reset token")
	ErrResetMailFailed    = apperr.New(apperr.Dependency, "Unable to send reset email right now")
)

// Job lifecycle.
var (
	ErrHROnly               = apperr.New(apperr.Forbidden, "Only HR users can perform this action")
	ErrNotJobOwner          = apperr.New(apperr.Forbidden, "You are not authorized to update this job")
	ErrNotApplicantsViewer  = apperr.New(apperr.Forbidden, "You are not authorized to view applicants")
	ErrAdminOnlyDelete      = apperr.New(apperr.Forbidden, "Only admins can permanently delete jobs")
	ErrCandidateOnly        = apperr.New(apperr.Forbidden, "Only candidates can apply")
	ErrJobNotFound          = apperr.New(apperr.NotFound, "Job not found")
	ErrInvalidJobID         = apperr.New(apperr.Validation, "Invalid job id")
	ErrTitleRequired        = apperr.New(apperr.Validation, "title is required")
	ErrDescriptionRequired  = apperr.New(apperr.Validation, "description is required")
	ErrLocationRequired     = apperr.New(apperr.Validation, "location is required")
	ErrInvalidJobType       = apperr.New(apperr.Validation, "Invalid jobType")
	ErrInvalidWorkMode      = apperr.New(apperr.Validation, "Invalid workMode")
	ErrInvalidExperience    = apperr.New(apperr.Validation, "Invalid experienceLevel")
	ErrInvalidApplyType     = apperr.New(apperr.Validation, "Invalid applyType")
	ErrInvalidJobStatus     = apperr.New(apperr.Validation, "Invalid status")
	ErrSalaryNegative       = apperr.New(apperr.Validation, "Salary cannot be negative")
	ErrSalaryRange          = apperr.New(apperr.Validation, "maxSalary must be greater than or equal to minSalary")
	ErrApplyURLRequired     = apperr.New(apperr.Validation, "applyUrl is required for external jobs")
	ErrInvalidApplyURL      = apperr.New(apperr.Validation, "Invalid applyUrl")
	ErrInvalidCompanyID     = apperr.New(apperr.Validation, "Invalid companyId")
	ErrBulkEmpty            = apperr.New(apperr.Validation, "Request body must be a non-empty array")
	ErrBulkTooLarge         = apperr.New(apperr.Validation, "A maximum of 100 jobs can be created at once")
	ErrArchivedNoUpdate     = apperr.New(apperr.Validation, "Archived job cannot be updated")
	ErrArchivedNoClose      = apperr.New(apperr.Validation, "Archived job cannot be closed")
	ErrDraftNoClose         = apperr.New(apperr.Validation, "Draft job cannot be closed")
	ErrOnlyDraftPublishable = apperr.New(apperr.Validation, "Only draft jobs can be published")
	ErrInvalidTransition    = apperr.New(apperr.Validation, "Invalid job status transition")

	ErrResumeURLRequired = apperr.New(apperr.Validation, "Resume URL is required")
	ErrInvalidResumeURL  = apperr.New(apperr.Validation, "Invalid resume URL")
	ErrJobUnavailable    = apperr.New(apperr.Validation, "Job is not available to apply")
	ErrJobExpired        = apperr.New(apperr.Validation, "Job has expired")
	ErrAlreadyApplied    = apperr.New(apperr.Conflict, "You have already applied to this job")
)

// Companies and resumes.
var (
	ErrCompanyNameRequired = apperr.New(apperr.Validation, "Company name is required")
	ErrInvalidCompanySize  = apperr.New(apperr.Validation, "Invalid company size")
	ErrInvalidWebsite      = apperr.New(apperr.Validation, "Invalid website")
	ErrCompanyExists       = apperr.New(apperr.Conflict, "Company already exists")
	ErrCompanyNotFound     = apperr.New(apperr.NotFound, "Company not found")
	ErrInvalidCompanyRef   = apperr.New(apperr.Validation, "Invalid company id")

	ErrResumeCandidateOnly = apperr.New(apperr.Forbidden, "Only candidates can upload resumes")
	ErrResumeRequired      = apperr.New(apperr.Validation, "Resume file is required")
	ErrResumeTooLarge      = apperr.New(apperr.Validation, "Resume must be at most 5 MB")
	ErrResumeNotPDF        = apperr.New(apperr.Validation, "Only PDF resumes are supported")
	ErrResumeUnreadable    = apperr.New(apperr.Validation, "Resume is not a readable PDF")
	ErrResumeUnavailable   = apperr.New(apperr.Dependency, "Resume upload is not available")
)
