package store

import (
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"jobboard/pkg/jobquery"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps term for a substring ILIKE, escaping wildcards.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// applyJobFilter mirrors jobquery.Filter.Match in SQL.
func applyJobFilter(tx *gorm.DB, f jobquery.Filter) *gorm.DB {
	if f.PostedBy != "" {
		tx = tx.Where("posted_by = ?", f.PostedBy)
	}
	if f.ListedOnly {
		tx = tx.Where("is_active = ? AND is_approved = ?", true, true)
	}
	if f.Active != nil {
		tx = tx.Where("is_active = ?", *f.Active)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", string(f.Status))
	}
	if f.Text != "" {
		p := likePattern(f.Text)
		tx = tx.Where("(title ILIKE ? OR description ILIKE ? OR company_name ILIKE ?)", p, p, p)
	}
	if f.Title != "" {
		tx = tx.Where("title ILIKE ?", likePattern(f.Title))
	}
	if f.Location != "" {
		tx = tx.Where("location ILIKE ?", likePattern(f.Location))
	}
	if len(f.Skills) > 0 {
		tx = tx.Where("skills && ?", pq.StringArray(f.Skills))
	}
	if f.CompanyID != "" {
		tx = tx.Where("LOWER(company_id) = ?", strings.ToLower(f.CompanyID))
	}
	for _, eq := range []struct{ column, value string }{
		{"apply_type", f.ApplyType},
		{"job_type", f.JobType},
		{"work_mode", f.WorkMode},
		{"experience_level", f.ExperienceLevel},
	} {
		if eq.value != "" {
			tx = tx.Where("LOWER("+eq.column+") = ?", strings.ToLower(eq.value))
		}
	}
	if f.MinSalary != nil {
		tx = tx.Where("(max_salary IS NULL OR max_salary >= ?)", *f.MinSalary)
	}
	if f.MaxSalary != nil {
		tx = tx.Where("(min_salary IS NULL OR min_salary <= ?)", *f.MaxSalary)
	}
	if f.Featured != nil {
		tx = tx.Where("is_featured = ?", *f.Featured)
	}
	if f.NotExpiredAt != nil {
		tx = tx.Where("(expiry_date IS NULL OR expiry_date >= ?)", *f.NotExpiredAt)
	}
	if f.ExpiresFrom != nil {
		tx = tx.Where("expiry_date IS NOT NULL AND expiry_date >= ?", *f.ExpiresFrom)
	}
	if f.ExpiredAt != nil {
		tx = tx.Where("expiry_date IS NOT NULL AND expiry_date < ?", *f.ExpiredAt)
	}
	return tx
}

// jobOrder mirrors jobquery.Compare.
func jobOrder(sort jobquery.Sort) []string {
	switch sort {
	case jobquery.SortTitle:
		return []string{`LOWER(title) COLLATE "C" ASC`, "id ASC"}
	case jobquery.SortSalary:
		return []string{"min_salary DESC NULLS LAST", "id ASC"}
	default:
		return []string{"created_at DESC", "id ASC"}
	}
}
