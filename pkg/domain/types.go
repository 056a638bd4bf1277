package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleCandidate UserRole = "candidate"
	RoleHR        UserRole = "hr"
	RoleAdmin     UserRole = "admin"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type User struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Email                  string     `json:"email"`
	PasswordHash           string     `json:"-"`
	Gender                 Gender     `json:"gender"`
	Address                string     `json:"address"`
	Role                   UserRole   `json:"userType"`
	Designation            string     `json:"designation,omitempty"`
	IsActive               bool       `json:"isActive"`
	PasswordResetTokenHash string     `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
	PasswordResetUsedAt    *time.Time `json:"-"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// ClearPasswordReset drops any pending reset token state.
func (u *User) ClearPasswordReset() {
	u.PasswordResetTokenHash = ""
	u.PasswordResetExpiresAt = nil
	u.PasswordResetUsedAt = nil
}

// UserSummary is the public projection of a user embedded in other payloads.
type UserSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Designation string `json:"designation,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Designation: u.Designation}
}

func ParseUserRole(raw string) (UserRole, bool) {
	switch UserRole(normalizeEnum(raw)) {
	case RoleCandidate:
		return RoleCandidate, true
	case RoleHR:
		return RoleHR, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

func ParseGender(raw string) (Gender, bool) {
	switch Gender(normalizeEnum(raw)) {
	case GenderMale:
		return GenderMale, true
	case GenderFemale:
		return GenderFemale, true
	case GenderOther:
		return GenderOther, true
	default:
		return "", false
	}
}

func normalizeEnum(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
