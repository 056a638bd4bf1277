package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"jobboard/pkg/domain"
	"jobboard/pkg/jobquery"
)

func testJob(id, owner string, created time.Time) domain.Job {
	return domain.Job{
		ID:          id,
		Title:       "Job " + id,
		Description: "desc",
		Location:    "Pune",
		JobType:     domain.DefaultJobType,
		WorkMode:    domain.DefaultWorkMode,
		ApplyType:   domain.ApplyInternal,
		PostedBy:    owner,
		Slug:        "job-" + id,
		Status:      domain.JobPublished,
		IsActive:    true,
		IsApproved:  true,
		Skills:      []string{"go"},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestMemoryStoreUserEmailUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.CreateUser(ctx, domain.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.CreateUser(ctx, domain.User{ID: "u2", Email: "A@example.com"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	u, ok, err := s.GetUserByEmail(ctx, " a@example.com ")
	if err != nil || !ok || u.ID != "u1" {
		t.Fatalf("lookup by email: ok=%v id=%q err=%v", ok, u.ID, err)
	}
}

func TestMemoryStoreSaveJobKeepsCounters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	job := testJob("j1", "hr1", now)
	if err := s.CreateJobs(ctx, []domain.Job{job}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.IncrementJobViews(ctx, "j1"); err != nil {
		t.Fatalf("views: %v", err)
	}
	job.Title = "Renamed"
	job.TotalViews = 0
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, _ := s.GetJob(ctx, "j1")
	if got.Title != "Renamed" || got.TotalViews != 1 {
		t.Fatalf("unexpected job after save: title=%q views=%d", got.Title, got.TotalViews)
	}
}

func TestMemoryStoreCreateJobsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	a := testJob("j1", "hr1", now)
	b := testJob("j2", "hr1", now)
	b.Slug = a.Slug
	if err := s.CreateJobs(ctx, []domain.Job{a, b}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate slug, got %v", err)
	}
	if _, ok, _ := s.GetJob(ctx, "j1"); ok {
		t.Fatalf("expected no job stored after failed batch")
	}
}

func TestMemoryStoreApplicationIncrementsOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	if err := s.CreateJobs(ctx, []domain.Job{testJob("j1", "hr1", now)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.CreateApplication(ctx, domain.Application{
				ID:          fmt.Sprintf("a%d", i),
				JobID:       "j1",
				CandidateID: "c1",
				AppliedAt:   now,
			})
		}()
	}
	wg.Wait()
	close(errs)
	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicate):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one accepted application, got %d", ok)
	}
	job, _, _ := s.GetJob(ctx, "j1")
	if job.TotalApplications != 1 {
		t.Fatalf("expected counter 1, got %d", job.TotalApplications)
	}
}

func TestMemoryStoreDeleteJobRemovesApplications(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	_ = s.CreateJobs(ctx, []domain.Job{testJob("j1", "hr1", now)})
	_ = s.CreateApplication(ctx, domain.Application{ID: "a1", JobID: "j1", CandidateID: "c1", AppliedAt: now})

	if err := s.DeleteJob(ctx, "j1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := s.CountApplications(ctx, "j1"); n != 0 {
		t.Fatalf("expected applications removed, got %d", n)
	}
	if err := s.DeleteJob(ctx, "j1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestMemoryStoreCloseExpiredJobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := testJob("j1", "hr1", now)
	expired.ExpiryDate = &past
	fresh := testJob("j2", "hr1", now)
	fresh.ExpiryDate = &future
	draft := testJob("j3", "hr1", now)
	draft.Status = domain.JobDraft
	draft.ExpiryDate = &past
	if err := s.CreateJobs(ctx, []domain.Job{expired, fresh, draft}); err != nil {
		t.Fatalf("create: %v", err)
	}

	n, err := s.CloseExpiredJobs(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("expected one job closed, got %d err=%v", n, err)
	}
	got, _, _ := s.GetJob(ctx, "j1")
	if got.Status != domain.JobClosed || got.IsActive || got.ClosedAt == nil {
		t.Fatalf("unexpected closed job: %+v", got)
	}
	if got, _, _ := s.GetJob(ctx, "j3"); got.Status != domain.JobDraft {
		t.Fatalf("draft must not be swept, got %s", got.Status)
	}
}

func TestMemoryStoreStatsAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	a := testJob("j1", "hr1", now)
	a.IsFeatured = true
	b := testJob("j2", "hr1", now.Add(time.Minute))
	b.Status = domain.JobDraft
	b.IsActive = false
	c := testJob("j3", "hr2", now)
	if err := s.CreateJobs(ctx, []domain.Job{a, b, c}); err != nil {
		t.Fatalf("create: %v", err)
	}

	stats, err := s.JobStats(ctx, "hr1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 || stats.Draft != 1 || stats.Published != 1 || stats.Featured != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	res, err := s.SearchJobs(ctx, jobquery.Query{
		Filter: jobquery.Filter{ListedOnly: true},
		Sort:   jobquery.SortDate,
		Page:   jobquery.Page{Number: 1, Limit: 10},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("expected two listed jobs, got %d", res.Total)
	}
}

func TestMemoryStoreListApplicantsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	_ = s.CreateUser(ctx, domain.User{ID: "c1", Name: "Asha", Email: "asha@example.com"})
	_ = s.CreateUser(ctx, domain.User{ID: "c2", Name: "Ravi", Email: "ravi@example.com"})
	_ = s.CreateJobs(ctx, []domain.Job{testJob("j1", "hr1", now)})
	_ = s.CreateApplication(ctx, domain.Application{ID: "a1", JobID: "j1", CandidateID: "c1", AppliedAt: now})
	_ = s.CreateApplication(ctx, domain.Application{ID: "a2", JobID: "j1", CandidateID: "c2", AppliedAt: now.Add(time.Minute)})

	list, err := s.ListApplicants(ctx, "j1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a2" || list[0].Candidate.Name != "Ravi" {
		t.Fatalf("unexpected applicants: %+v", list)
	}
}
