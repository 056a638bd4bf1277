package jobquery

import (
	"slices"
	"strings"

	"jobboard/pkg/domain"
)

// Match reports whether the job satisfies every predicate of the filter.
func (f Filter) Match(j domain.Job) bool {
	if f.PostedBy != "" && j.PostedBy != f.PostedBy {
		return false
	}
	if f.ListedOnly && !j.Listed() {
		return false
	}
	if f.Active != nil && j.IsActive != *f.Active {
		return false
	}
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if f.Text != "" && !containsFold(j.Title, f.Text) && !containsFold(j.Description, f.Text) && !containsFold(j.CompanyName, f.Text) {
		return false
	}
	if f.Title != "" && !containsFold(j.Title, f.Title) {
		return false
	}
	if f.Location != "" && !containsFold(j.Location, f.Location) {
		return false
	}
	if len(f.Skills) > 0 && !intersects(j.Skills, f.Skills) {
		return false
	}
	if f.CompanyID != "" && (j.CompanyID == nil || !strings.EqualFold(*j.CompanyID, f.CompanyID)) {
		return false
	}
	if !enumEquals(string(j.ApplyType), f.ApplyType) ||
		!enumEquals(j.JobType, f.JobType) ||
		!enumEquals(j.WorkMode, f.WorkMode) ||
		!enumEquals(j.ExperienceLevel, f.ExperienceLevel) {
		return false
	}
	// Salary overlap: a missing bound on the job is open-ended.
	if f.MinSalary != nil && j.MaxSalary != nil && *j.MaxSalary < *f.MinSalary {
		return false
	}
	if f.MaxSalary != nil && j.MinSalary != nil && *j.MinSalary > *f.MaxSalary {
		return false
	}
	if f.Featured != nil && j.IsFeatured != *f.Featured {
		return false
	}
	if f.NotExpiredAt != nil && j.ExpiryDate != nil && j.ExpiryDate.Before(*f.NotExpiredAt) {
		return false
	}
	if f.ExpiresFrom != nil && (j.ExpiryDate == nil || j.ExpiryDate.Before(*f.ExpiresFrom)) {
		return false
	}
	if f.ExpiredAt != nil && (j.ExpiryDate == nil || !j.ExpiryDate.Before(*f.ExpiredAt)) {
		return false
	}
	return true
}

// Compare returns the ordering function for a sort key. Ties break on id so
// repeated queries over the same data page identically.
func Compare(sort Sort) func(a, b domain.Job) int {
	var primary func(a, b domain.Job) int
	switch sort {
	case SortTitle:
		primary = func(a, b domain.Job) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortSalary:
		primary = func(a, b domain.Job) int {
			switch {
			case a.MinSalary == nil && b.MinSalary == nil:
				return 0
			case a.MinSalary == nil:
				return 1
			case b.MinSalary == nil:
				return -1
			case *a.MinSalary > *b.MinSalary:
				return -1
			case *a.MinSalary < *b.MinSalary:
				return 1
			}
			return 0
		}
	default:
		primary = func(a, b domain.Job) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		}
	}
	return func(a, b domain.Job) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	}
}

// Apply evaluates the query over an in-memory job set.
func Apply(jobs []domain.Job, q Query) Result {
	matched := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if q.Filter.Match(j) {
			matched = append(matched, j)
		}
	}
	slices.SortFunc(matched, Compare(q.Sort))
	total := int64(len(matched))
	offset := q.Page.Offset()
	if offset >= len(matched) {
		return NewResult(nil, total, q.Page)
	}
	end := len(matched)
	if q.Page.Limit > 0 && q.Page.Limit < end-offset {
		end = offset + q.Page.Limit
	}
	return NewResult(slices.Clone(matched[offset:end]), total, q.Page)
}

// Suggestions are distinct titles and skills containing the typed term.
type Suggestions struct {
	Titles []string `json:"titles"`
	Skills []string `json:"skills"`
}

// MatchesSuggestion reports whether the title or any skill contains term.
func MatchesSuggestion(j domain.Job, term string) bool {
	if containsFold(j.Title, term) {
		return true
	}
	for _, s := range j.Skills {
		if containsFold(s, term) {
			return true
		}
	}
	return false
}

// BuildSuggestions collects distinct titles and matching skills in job order.
func BuildSuggestions(jobs []domain.Job, term string) Suggestions {
	out := Suggestions{Titles: []string{}, Skills: []string{}}
	seenTitles := map[string]struct{}{}
	seenSkills := map[string]struct{}{}
	for _, j := range jobs {
		if containsFold(j.Title, term) {
			key := strings.ToLower(j.Title)
			if _, ok := seenTitles[key]; !ok {
				seenTitles[key] = struct{}{}
				out.Titles = append(out.Titles, j.Title)
			}
		}
		for _, s := range j.Skills {
			if !containsFold(s, term) {
				continue
			}
			key := strings.ToLower(s)
			if _, ok := seenSkills[key]; !ok {
				seenSkills[key] = struct{}{}
				out.Skills = append(out.Skills, s)
			}
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func enumEquals(value, want string) bool {
	return want == "" || strings.EqualFold(value, want)
}

func intersects(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
