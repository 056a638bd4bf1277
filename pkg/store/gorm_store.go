package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"jobboard/pkg/domain"
	"jobboard/pkg/jobquery"
)

const migrateLockID int64 = 51730417

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &CompanyModel{}, &JobModel{}, &ApplicationModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'application_models'
					AND constraint_name = 'application_models_job_id_fkey'
				) THEN
					ALTER TABLE application_models
					ADD CONSTRAINT application_models_job_id_fkey
					FOREIGN KEY (job_id) REFERENCES job_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure application foreign keys: %w", err)
		}
		if err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_job_models_skills ON job_models USING GIN (skills)`).Error; err != nil {
			return fmt.Errorf("ensure skills index: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// CreateUser inserts a new user; a taken email yields ErrDuplicate.
func (s *GormStore) CreateUser(ctx context.Context, u domain.User) error {
	model := userToModel(u)
	return translateErr(s.db.WithContext(ctx).Create(&model).Error)
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(ctx context.Context, u domain.User) error {
	model := userToModel(u)
	return translateErr(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "email", "password_hash", "gender", "address", "role", "designation", "is_active",
			"password_reset_token_hash", "password_reset_expires_at", "password_reset_used_at", "updated_at",
		}),
	}).Create(&model).Error)
}

// ConsumePasswordReset swaps in the new password hash in one conditional
// UPDATE so a reset token can be spent once.
func (s *GormStore) ConsumePasswordReset(ctx context.Context, userID, tokenHash, passwordHash string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ? AND password_reset_token_hash = ? AND password_reset_expires_at > ? AND password_reset_used_at IS NULL",
			userID, tokenHash, now).
		Updates(map[string]any{
			"password_hash":             passwordHash,
			"password_reset_token_hash": nil,
			"password_reset_expires_at": nil,
			"password_reset_used_at":    now,
			"updated_at":                now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GetUserByEmail looks up a user by normalized email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateCompany inserts a company; a taken name yields ErrDuplicate.
func (s *GormStore) CreateCompany(ctx context.Context, c domain.Company) error {
	model := companyToModel(c)
	return translateErr(s.db.WithContext(ctx).Create(&model).Error)
}

// GetCompany returns a company by ID.
func (s *GormStore) GetCompany(ctx context.Context, id string) (domain.Company, bool, error) {
	var model CompanyModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Company{}, false, nil
		}
		return domain.Company{}, false, err
	}
	return companyFromModel(model), true, nil
}

// ListCompanies returns all companies ordered by name.
func (s *GormStore) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	var models []CompanyModel
	if err := s.db.WithContext(ctx).Order("name_key ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Company, 0, len(models))
	for _, m := range models {
		res = append(res, companyFromModel(m))
	}
	return res, nil
}

// CreateJobs inserts all jobs in one transaction.
func (s *GormStore) CreateJobs(ctx context.Context, jobs []domain.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	models := make([]JobModel, 0, len(jobs))
	for _, j := range jobs {
		models = append(models, jobToModel(j))
	}
	return translateErr(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&models, 100).Error
	}))
}

// SaveJob updates a job's editable state. Counters are maintained by their
// own atomic updates and are never overwritten here.
func (s *GormStore) SaveJob(ctx context.Context, j domain.Job) error {
	model := jobToModel(j)
	return translateErr(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "responsibilities", "requirements", "skills", "experience_level",
			"job_type", "work_mode", "location", "min_salary", "max_salary", "salary_currency",
			"apply_type", "apply_url", "company_name", "company_id", "slug", "status",
			"is_active", "is_approved", "is_featured", "expiry_date", "closed_at", "archived_at", "updated_at",
		}),
	}).Create(&model).Error)
}

// GetJob returns a job by ID.
func (s *GormStore) GetJob(ctx context.Context, id string) (domain.Job, bool, error) {
	var model JobModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, err
	}
	return jobFromModel(model), true, nil
}

// GetJobBySlug returns the oldest job carrying the slug.
func (s *GormStore) GetJobBySlug(ctx context.Context, slug string) (domain.Job, bool, error) {
	var model JobModel
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).Order("created_at ASC").Order("id ASC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, err
	}
	return jobFromModel(model), true, nil
}

// DeleteJob removes a job and its applications.
func (s *GormStore) DeleteJob(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ApplicationModel{}, "job_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&JobModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SearchJobs runs the page query and the count concurrently.
func (s *GormStore) SearchJobs(ctx context.Context, q jobquery.Query) (jobquery.Result, error) {
	var (
		models []JobModel
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tx := applyJobFilter(s.db.WithContext(gctx).Model(&JobModel{}), q.Filter)
		for _, order := range jobOrder(q.Sort) {
			tx = tx.Order(order)
		}
		return tx.Offset(q.Page.Offset()).Limit(q.Page.Limit).Find(&models).Error
	})
	g.Go(func() error {
		return applyJobFilter(s.db.WithContext(gctx).Model(&JobModel{}), q.Filter).Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return jobquery.Result{}, fmt.Errorf("search jobs: %w", err)
	}
	if int64(q.Page.Offset()) >= total {
		models = nil
	}
	jobs := make([]domain.Job, 0, len(models))
	for _, m := range models {
		jobs = append(jobs, jobFromModel(m))
	}
	return jobquery.NewResult(jobs, total, q.Page), nil
}

// SuggestJobs returns listed jobs whose title or any skill contains term.
func (s *GormStore) SuggestJobs(ctx context.Context, term string, limit int) ([]domain.Job, error) {
	pattern := likePattern(term)
	var models []JobModel
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND is_approved = ?", true, true).
		Where("(title ILIKE ? OR EXISTS (SELECT 1 FROM unnest(skills) AS skill WHERE skill ILIKE ?))", pattern, pattern).
		Order("created_at DESC").
		Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	jobs := make([]domain.Job, 0, len(models))
	for _, m := range models {
		jobs = append(jobs, jobFromModel(m))
	}
	return jobs, nil
}

// JobStats aggregates the owner's postings in one pass.
func (s *GormStore) JobStats(ctx context.Context, ownerID string) (domain.JobStats, error) {
	var stats domain.JobStats
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = ?) AS draft,
			COUNT(*) FILTER (WHERE status = ?) AS published,
			COUNT(*) FILTER (WHERE status = ?) AS closed,
			COUNT(*) FILTER (WHERE status = ?) AS archived,
			COUNT(*) FILTER (WHERE is_featured) AS featured,
			COALESCE(SUM(total_views), 0) AS total_views,
			COALESCE(SUM(total_applications), 0) AS total_applications
		FROM job_models
		WHERE posted_by = ?`,
		string(domain.JobDraft), string(domain.JobPublished), string(domain.JobClosed), string(domain.JobArchived), ownerID,
	).Scan(&stats).Error
	return stats, err
}

// IncrementJobViews bumps the view counter and returns the new value.
func (s *GormStore) IncrementJobViews(ctx context.Context, id string) (int64, error) {
	var views []int64
	err := s.db.WithContext(ctx).
		Raw("UPDATE job_models SET total_views = total_views + 1 WHERE id = ? RETURNING total_views", id).
		Scan(&views).Error
	if err != nil {
		return 0, err
	}
	if len(views) == 0 {
		return 0, ErrNotFound
	}
	return views[0], nil
}

// CloseExpiredJobs closes active published jobs whose expiry date has passed.
func (s *GormStore) CloseExpiredJobs(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&JobModel{}).
		Where("status = ? AND is_active = ?", string(domain.JobPublished), true).
		Where("expiry_date IS NOT NULL AND expiry_date < ?", now).
		Updates(map[string]any{
			"status":     string(domain.JobClosed),
			"is_active":  false,
			"closed_at":  now,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

// CreateApplication inserts the application and bumps the job's counter in
// one transaction. A repeat application yields ErrDuplicate.
func (s *GormStore) CreateApplication(ctx context.Context, a domain.Application) error {
	model := applicationToModel(a)
	return translateErr(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		res := tx.Model(&JobModel{}).Where("id = ?", a.JobID).
			UpdateColumn("total_applications", gorm.Expr("total_applications + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}))
}

// HasApplication reports whether the candidate already applied to the job.
func (s *GormStore) HasApplication(ctx context.Context, jobID, candidateID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ApplicationModel{}).
		Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
		Count(&count).Error
	return count > 0, err
}

type applicantRow struct {
	ApplicationModel
	CandidateName        string
	CandidateEmail       string
	CandidateDesignation string
}

// ListApplicants returns a job's applications with candidate profiles, newest first.
func (s *GormStore) ListApplicants(ctx context.Context, jobID string) ([]domain.Applicant, error) {
	var rows []applicantRow
	err := s.db.WithContext(ctx).
		Table("application_models AS a").
		Select("a.*, u.name AS candidate_name, u.email AS candidate_email, u.designation AS candidate_designation").
		Joins("LEFT JOIN user_models AS u ON u.id = a.candidate_id").
		Where("a.job_id = ?", jobID).
		Order("a.applied_at DESC").
		Order("a.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Applicant, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Applicant{
			Application: applicationFromModel(row.ApplicationModel),
			Candidate: domain.UserSummary{
				ID:          row.CandidateID,
				Name:        row.CandidateName,
				Email:       row.CandidateEmail,
				Designation: row.CandidateDesignation,
			},
		})
	}
	return out, nil
}

// CountApplications returns the number of applications for a job.
func (s *GormStore) CountApplications(ctx context.Context, jobID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ApplicationModel{}).Where("job_id = ?", jobID).Count(&count).Error
	return count, err
}

func userToModel(u domain.User) UserModel {
	var resetHash *string
	if u.PasswordResetTokenHash != "" {
		value := u.PasswordResetTokenHash
		resetHash = &value
	}
	return UserModel{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		PasswordHash:           u.PasswordHash,
		Gender:                 string(u.Gender),
		Address:                u.Address,
		Role:                   string(u.Role),
		Designation:            u.Designation,
		IsActive:               u.IsActive,
		PasswordResetTokenHash: resetHash,
		PasswordResetExpiresAt: u.PasswordResetExpiresAt,
		PasswordResetUsedAt:    u.PasswordResetUsedAt,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	resetHash := ""
	if m.PasswordResetTokenHash != nil {
		resetHash = *m.PasswordResetTokenHash
	}
	return domain.User{
		ID:                     m.ID,
		Name:                   m.Name,
		Email:                  m.Email,
		PasswordHash:           m.PasswordHash,
		Gender:                 domain.Gender(m.Gender),
		Address:                m.Address,
		Role:                   domain.UserRole(m.Role),
		Designation:            m.Designation,
		IsActive:               m.IsActive,
		PasswordResetTokenHash: resetHash,
		PasswordResetExpiresAt: m.PasswordResetExpiresAt,
		PasswordResetUsedAt:    m.PasswordResetUsedAt,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func companyToModel(c domain.Company) CompanyModel {
	return CompanyModel{
		ID:           c.ID,
		Name:         c.Name,
		NameKey:      strings.ToLower(strings.TrimSpace(c.Name)),
		Logo:         c.Logo,
		Website:      c.Website,
		Industry:     c.Industry,
		Size:         c.Size,
		Headquarters: c.Headquarters,
		Description:  c.Description,
		CreatedBy:    c.CreatedBy,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func companyFromModel(m CompanyModel) domain.Company {
	return domain.Company{
		ID:           m.ID,
		Name:         m.Name,
		Logo:         m.Logo,
		Website:      m.Website,
		Industry:     m.Industry,
		Size:         m.Size,
		Headquarters: m.Headquarters,
		Description:  m.Description,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func jobToModel(j domain.Job) JobModel {
	responsibilities, _ := json.Marshal(nonNil(j.Responsibilities))
	requirements, _ := json.Marshal(nonNil(j.Requirements))
	return JobModel{
		ID:                j.ID,
		Title:             j.Title,
		Description:       j.Description,
		Responsibilities:  responsibilities,
		Requirements:      requirements,
		Skills:            nonNil(j.Skills),
		ExperienceLevel:   j.ExperienceLevel,
		JobType:           j.JobType,
		WorkMode:          j.WorkMode,
		Location:          j.Location,
		MinSalary:         j.MinSalary,
		MaxSalary:         j.MaxSalary,
		SalaryCurrency:    j.SalaryCurrency,
		ApplyType:         string(j.ApplyType),
		ApplyURL:          j.ApplyURL,
		CompanyName:       j.CompanyName,
		CompanyID:         j.CompanyID,
		PostedBy:          j.PostedBy,
		Slug:              j.Slug,
		Status:            string(j.Status),
		IsActive:          j.IsActive,
		IsApproved:        j.IsApproved,
		IsFeatured:        j.IsFeatured,
		ExpiryDate:        j.ExpiryDate,
		ClosedAt:          j.ClosedAt,
		ArchivedAt:        j.ArchivedAt,
		TotalViews:        j.TotalViews,
		TotalApplications: j.TotalApplications,
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         j.UpdatedAt,
	}
}

func jobFromModel(m JobModel) domain.Job {
	var responsibilities, requirements []string
	if len(m.Responsibilities) > 0 {
		_ = json.Unmarshal(m.Responsibilities, &responsibilities)
	}
	if len(m.Requirements) > 0 {
		_ = json.Unmarshal(m.Requirements, &requirements)
	}
	return domain.Job{
		ID:                m.ID,
		Title:             m.Title,
		Description:       m.Description,
		Responsibilities:  nonNil(responsibilities),
		Requirements:      nonNil(requirements),
		Skills:            nonNil(m.Skills),
		ExperienceLevel:   m.ExperienceLevel,
		JobType:           m.JobType,
		WorkMode:          m.WorkMode,
		Location:          m.Location,
		MinSalary:         m.MinSalary,
		MaxSalary:         m.MaxSalary,
		SalaryCurrency:    m.SalaryCurrency,
		ApplyType:         domain.ApplyType(m.ApplyType),
		ApplyURL:          m.ApplyURL,
		CompanyName:       m.CompanyName,
		CompanyID:         m.CompanyID,
		PostedBy:          m.PostedBy,
		Slug:              m.Slug,
		Status:            domain.JobStatus(m.Status),
		IsActive:          m.IsActive,
		IsApproved:        m.IsApproved,
		IsFeatured:        m.IsFeatured,
		ExpiryDate:        m.ExpiryDate,
		ClosedAt:          m.ClosedAt,
		ArchivedAt:        m.ArchivedAt,
		TotalViews:        m.TotalViews,
		TotalApplications: m.TotalApplications,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func applicationToModel(a domain.Application) ApplicationModel {
	return ApplicationModel{
		ID:           a.ID,
		JobID:        a.JobID,
		CandidateID:  a.CandidateID,
		ResumeURL:    a.ResumeURL,
		CoverLetter:  a.CoverLetter,
		Status:       string(a.Status),
		HRNotes:      a.HRNotes,
		IsViewedByHR: a.IsViewedByHR,
		AppliedAt:    a.AppliedAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func applicationFromModel(m ApplicationModel) domain.Application {
	return domain.Application{
		ID:           m.ID,
		JobID:        m.JobID,
		CandidateID:  m.CandidateID,
		ResumeURL:    m.ResumeURL,
		CoverLetter:  m.CoverLetter,
		Status:       domain.ApplicationStatus(m.Status),
		HRNotes:      m.HRNotes,
		IsViewedByHR: m.IsViewedByHR,
		AppliedAt:    m.AppliedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
