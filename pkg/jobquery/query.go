// Package jobquery turns listing requests into normalised job queries and
// evaluates them in memory. Stores translate the same Query to their own
// query language and must agree with Match and Compare.
package jobquery

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobboard/pkg/domain"
)

const (
	DefaultLimit         = 10
	MaxPublicLimit       = 50
	MaxOwnerLimit        = 5000
	SuggestLimit         = 10
	DefaultFeaturedLimit = 6
)

// Sort is an allow-listed ordering key.
type Sort string

const (
	SortDate   Sort = "date"
	SortTitle  Sort = "title"
	SortSalary Sort = "salary"
)

// ParseSort maps a raw sort key to an allowed one. Unknown keys fall back to date.
func ParseSort(raw string) Sort {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "title":
		return SortTitle
	case "salary":
		return SortSalary
	default:
		return SortDate
	}
}

// Filter holds AND-combined predicates. Zero values disable a predicate.
type Filter struct {
	PostedBy        string
	ListedOnly      bool
	Active          *bool
	Status          domain.JobStatus
	Text            string
	Title           string
	Location        string
	Skills          []string
	CompanyID       string
	ApplyType       string
	JobType         string
	WorkMode        string
	ExperienceLevel string
	MinSalary       *int64
	MaxSalary       *int64
	Featured        *bool
	// NotExpiredAt keeps jobs without expiry or expiring at or after the time.
	NotExpiredAt *time.Time
	// ExpiresFrom keeps jobs with an expiry at or after the time.
	ExpiresFrom *time.Time
	// ExpiredAt keeps jobs with an expiry strictly before the time.
	ExpiredAt *time.Time
}

// Page is a 1-based page number and a page size.
type Page struct {
	Number int
	Limit  int
}

// Offset is the number of rows skipped before this page. It saturates at
// math.MaxInt instead of wrapping.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Limit
}

// MaxPage is the largest page number whose offset fits in an int.
func MaxPage(limit int) int {
	if limit <= 0 {
		return math.MaxInt
	}
	return math.MaxInt / limit
}

type Query struct {
	Filter Filter
	Sort   Sort
	Page   Page
}

type Result struct {
	Jobs  []domain.Job `json:"jobs"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Pages int          `json:"pages"`
}

// NewResult assembles a page of results with its pagination metadata.
func NewResult(jobs []domain.Job, total int64, page Page) Result {
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return Result{
		Jobs:  jobs,
		Total: total,
		Page:  page.Number,
		Limit: page.Limit,
		Pages: PageCount(total, page.Limit),
	}
}

// PageCount returns ceil(total/limit).
func PageCount(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// ParsePage clamps limit to [1, maxLimit] and page to [1, MaxPage(limit)].
// Missing or non-numeric values use page 1 and defaultLimit.
func ParsePage(rawPage, rawLimit string, defaultLimit, maxLimit int) Page {
	limit, err := strconv.Atoi(strings.TrimSpace(rawLimit))
	if err != nil {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	page, err := strconv.Atoi(strings.TrimSpace(rawPage))
	switch {
	case errors.Is(err, strconv.ErrRange) && page > 0:
		page = MaxPage(limit)
	case err != nil || page < 1:
		page = 1
	case page > MaxPage(limit):
		page = MaxPage(limit)
	}
	return Page{Number: page, Limit: limit}
}

// ParsePublic builds the public listing query. Only active, approved jobs match.
func ParsePublic(v url.Values) Query {
	f := Filter{
		ListedOnly:      true,
		Text:            strings.TrimSpace(v.Get("q")),
		Location:        strings.TrimSpace(v.Get("location")),
		Skills:          parseSkills(v["skills"]),
		CompanyID:       strings.TrimSpace(v.Get("companyId")),
		ApplyType:       normalize(v.Get("applyType")),
		JobType:         normalize(v.Get("jobType")),
		WorkMode:        normalize(v.Get("workMode")),
		ExperienceLevel: normalize(v.Get("experienceLevel")),
		MinSalary:       parseAmount(v.Get("minSalary")),
		MaxSalary:       parseAmount(v.Get("maxSalary")),
		Featured:        parseBool(v.Get("isFeatured")),
	}
	return Query{
		Filter: f,
		Sort:   ParseSort(v.Get("sort")),
		Page:   ParsePage(v.Get("page"), v.Get("limit"), DefaultLimit, MaxPublicLimit),
	}
}

// ParseOwner builds the "my jobs" query for an HR owner.
// status accepts active, expired or a lifecycle status.
func ParseOwner(ownerID string, v url.Values, now time.Time) Query {
	f := Filter{
		PostedBy: ownerID,
		Title:    strings.TrimSpace(v.Get("q")),
		Featured: parseBool(v.Get("isFeatured")),
	}
	switch status := normalize(v.Get("status")); status {
	case "active":
		active := true
		f.Active = &active
		f.NotExpiredAt = &now
	case "expired":
		f.ExpiredAt = &now
	default:
		if s, ok := domain.ParseJobStatus(status); ok {
			f.Status = s
		}
	}
	return Query{
		Filter: f,
		Sort:   ParseSort(v.Get("sort")),
		Page:   ParsePage(v.Get("page"), v.Get("limit"), DefaultLimit, MaxOwnerLimit),
	}
}

// FeaturedQuery returns listed, featured, unexpired jobs, newest first.
func FeaturedQuery(rawLimit string, now time.Time) Query {
	featured := true
	return Query{
		Filter: Filter{
			ListedOnly:  true,
			Featured:    &featured,
			ExpiresFrom: &now,
		},
		Sort: SortDate,
		Page: ParsePage("1", rawLimit, DefaultFeaturedLimit, MaxPublicLimit),
	}
}

// NormalizeSkills trims, lower-cases and de-duplicates skills, keeping order.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = normalize(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func parseSkills(raw []string) []string {
	var parts []string
	for _, entry := range raw {
		parts = append(parts, strings.Split(entry, ",")...)
	}
	skills := NormalizeSkills(parts)
	if len(skills) == 0 {
		return nil
	}
	return skills
}

func parseAmount(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func parseBool(raw string) *bool {
	switch normalize(raw) {
	case "true":
		b := true
		return &b
	case "false":
		b := false
		return &b
	default:
		return nil
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
