package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"jobboard/pkg/domain"
	"jobboard/pkg/jobquery"
)

// MemoryStore keeps records in-process. It backs tests and local runs
// without Postgres.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]domain.User // key: user ID
	email        map[string]string      // email -> user ID
	companies    map[string]domain.Company
	companyNames map[string]string // lower(name) -> company ID
	jobs         map[string]domain.Job
	applications map[string]domain.Application
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]domain.User),
		email:        make(map[string]string),
		companies:    make(map[string]domain.Company),
		companyNames: make(map[string]string),
		jobs:         make(map[string]domain.Job),
		applications: make(map[string]domain.Application),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := m.email[key]; ok {
		return ErrDuplicate
	}
	if _, ok := m.users[u.ID]; ok {
		return ErrDuplicate
	}
	m.users[u.ID] = u
	m.email[key] = u.ID
	return nil
}

func (m *MemoryStore) SaveUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Email)
	if owner, ok := m.email[key]; ok && owner != u.ID {
		return ErrDuplicate
	}
	if prev, ok := m.users[u.ID]; ok {
		delete(m.email, strings.ToLower(prev.Email))
	}
	m.users[u.ID] = u
	m.email[key] = u.ID
	return nil
}

// ConsumePasswordReset is the compare-and-swap counterpart of the SQL
// conditional update.
func (m *MemoryStore) ConsumePasswordReset(_ context.Context, userID, tokenHash, passwordHash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || tokenHash == "" || u.PasswordResetTokenHash != tokenHash ||
		u.PasswordResetExpiresAt == nil || !now.Before(*u.PasswordResetExpiresAt) ||
		u.PasswordResetUsedAt != nil {
		return false, nil
	}
	usedAt := now
	u.PasswordHash = passwordHash
	u.PasswordResetTokenHash = ""
	u.PasswordResetExpiresAt = nil
	u.PasswordResetUsedAt = &usedAt
	u.UpdatedAt = now
	m.users[userID] = u
	return true, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) CreateCompany(_ context.Context, c domain.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(c.Name))
	if _, ok := m.companyNames[key]; ok {
		return ErrDuplicate
	}
	m.companies[c.ID] = c
	m.companyNames[key] = c.ID
	return nil
}

func (m *MemoryStore) GetCompany(_ context.Context, id string) (domain.Company, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.companies[id]
	return c, ok, nil
}

func (m *MemoryStore) ListCompanies(_ context.Context) ([]domain.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Company, 0, len(m.companies))
	for _, c := range m.companies {
		res = append(res, c)
	}
	slices.SortFunc(res, func(a, b domain.Company) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return res, nil
}

// CreateJobs inserts all jobs or none.
func (m *MemoryStore) CreateJobs(_ context.Context, jobs []domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		if _, ok := m.jobs[j.ID]; ok {
			return ErrDuplicate
		}
		if m.slugTakenLocked(j) {
			return ErrDuplicate
		}
		key := j.PostedBy + "\x00" + j.Slug
		if _, ok := seen[key]; ok {
			return ErrDuplicate
		}
		seen[key] = struct{}{}
	}
	for _, j := range jobs {
		m.jobs[j.ID] = cloneJob(j)
	}
	return nil
}

// SaveJob stores the job's editable state, keeping the stored counters.
func (m *MemoryStore) SaveJob(_ context.Context, j domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugTakenLocked(j) {
		return ErrDuplicate
	}
	if prev, ok := m.jobs[j.ID]; ok {
		j.TotalViews = prev.TotalViews
		j.TotalApplications = prev.TotalApplications
		j.CreatedAt = prev.CreatedAt
	}
	m.jobs[j.ID] = cloneJob(j)
	return nil
}

func (m *MemoryStore) slugTakenLocked(j domain.Job) bool {
	for _, other := range m.jobs {
		if other.ID != j.ID && other.PostedBy == j.PostedBy && other.Slug == j.Slug {
			return true
		}
	}
	return false
}

func (m *MemoryStore) GetJob(_ context.Context, id string) (domain.Job, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, false, nil
	}
	return cloneJob(j), true, nil
}

func (m *MemoryStore) GetJobBySlug(_ context.Context, slug string) (domain.Job, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		found domain.Job
		ok    bool
	)
	for _, j := range m.jobs {
		if j.Slug != slug {
			continue
		}
		if !ok || j.CreatedAt.Before(found.CreatedAt) || (j.CreatedAt.Equal(found.CreatedAt) && j.ID < found.ID) {
			found, ok = j, true
		}
	}
	if !ok {
		return domain.Job{}, false, nil
	}
	return cloneJob(found), true, nil
}

func (m *MemoryStore) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(m.jobs, id)
	for appID, a := range m.applications {
		if a.JobID == id {
			delete(m.applications, appID)
		}
	}
	return nil
}

func (m *MemoryStore) SearchJobs(_ context.Context, q jobquery.Query) (jobquery.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := jobquery.Apply(m.snapshotLocked(), q)
	for i := range res.Jobs {
		res.Jobs[i] = cloneJob(res.Jobs[i])
	}
	return res, nil
}

func (m *MemoryStore) SuggestJobs(_ context.Context, term string, limit int) ([]domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := m.snapshotLocked()
	slices.SortFunc(jobs, jobquery.Compare(jobquery.SortDate))
	out := make([]domain.Job, 0, limit)
	for _, j := range jobs {
		if len(out) >= limit {
			break
		}
		if j.Listed() && jobquery.MatchesSuggestion(j, term) {
			out = append(out, cloneJob(j))
		}
	}
	return out, nil
}

func (m *MemoryStore) JobStats(_ context.Context, ownerID string) (domain.JobStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats domain.JobStats
	for _, j := range m.jobs {
		if j.PostedBy != ownerID {
			continue
		}
		stats.Total++
		switch j.Status {
		case domain.JobDraft:
			stats.Draft++
		case domain.JobPublished:
			stats.Published++
		case domain.JobClosed:
			stats.Closed++
		case domain.JobArchived:
			stats.Archived++
		}
		if j.IsFeatured {
			stats.Featured++
		}
		stats.TotalViews += j.TotalViews
		stats.TotalApplications += j.TotalApplications
	}
	return stats, nil
}

func (m *MemoryStore) IncrementJobViews(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return 0, ErrNotFound
	}
	j.TotalViews++
	m.jobs[id] = j
	return j.TotalViews, nil
}

func (m *MemoryStore) CloseExpiredJobs(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var closed int64
	for id, j := range m.jobs {
		if j.Status != domain.JobPublished || !j.IsActive || !j.Expired(now) {
			continue
		}
		closedAt := now
		j.Status = domain.JobClosed
		j.IsActive = false
		j.ClosedAt = &closedAt
		j.UpdatedAt = now
		m.jobs[id] = j
		closed++
	}
	return closed, nil
}

// CreateApplication inserts the application and bumps the job counter under
// one lock, so the pair is atomic like the SQL transaction.
func (m *MemoryStore) CreateApplication(_ context.Context, a domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[a.JobID]
	if !ok {
		return ErrNotFound
	}
	for _, existing := range m.applications {
		if existing.JobID == a.JobID && existing.CandidateID == a.CandidateID {
			return ErrDuplicate
		}
	}
	m.applications[a.ID] = a
	j.TotalApplications++
	m.jobs[a.JobID] = j
	return nil
}

func (m *MemoryStore) HasApplication(_ context.Context, jobID, candidateID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.applications {
		if a.JobID == jobID && a.CandidateID == candidateID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) ListApplicants(_ context.Context, jobID string) ([]domain.Applicant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Applicant, 0)
	for _, a := range m.applications {
		if a.JobID != jobID {
			continue
		}
		applicant := domain.Applicant{Application: a, Candidate: domain.UserSummary{ID: a.CandidateID}}
		if u, ok := m.users[a.CandidateID]; ok {
			applicant.Candidate = u.Summary()
		}
		out = append(out, applicant)
	}
	slices.SortFunc(out, func(a, b domain.Applicant) int {
		if c := b.AppliedAt.Compare(a.AppliedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *MemoryStore) CountApplications(_ context.Context, jobID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, a := range m.applications {
		if a.JobID == jobID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) snapshotLocked() []domain.Job {
	jobs := make([]domain.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}

func cloneJob(j domain.Job) domain.Job {
	j.Responsibilities = slices.Clone(j.Responsibilities)
	j.Requirements = slices.Clone(j.Requirements)
	j.Skills = slices.Clone(j.Skills)
	return j
}
