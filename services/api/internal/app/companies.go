package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"jobboard/internal/util"
	"jobboard/pkg/domain"
	"jobboard/pkg/store"
)

// CompanyInput is the company registration payload.
type CompanyInput struct {
	Name         string `json:"name"`
	Logo         string `json:"logo"`
	Website      string `json:"website"`
	Industry     string `json:"industry"`
	Size         string `json:"size"`
	Headquarters string `json:"headquarters"`
	Description  string `json:"description"`
}

// CreateCompany registers a company. Names are unique case-insensitively.
func (a *App) CreateCompany(ctx context.Context, user domain.User, in CompanyInput) (domain.Company, error) {
	if user.Role != domain.RoleHR && user.Role != domain.RoleAdmin {
		return domain.Company{}, ErrHROnly
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Company{}, ErrCompanyNameRequired
	}
	size := strings.TrimSpace(in.Size)
	if size != "" && !domain.ValidEnum(domain.CompanySizes, size) {
		return domain.Company{}, ErrInvalidCompanySize
	}
	website := strings.TrimSpace(in.Website)
	if website != "" {
		normalized, ok := normalizeHTTPURL(website)
		if !ok {
			return domain.Company{}, ErrInvalidWebsite
		}
		website = normalized
	}
	now := a.clock()
	company := domain.Company{
		ID:           util.NewID(),
		Name:         name,
		Logo:         strings.TrimSpace(in.Logo),
		Website:      website,
		Industry:     strings.TrimSpace(in.Industry),
		Size:         size,
		Headquarters: strings.TrimSpace(in.Headquarters),
		Description:  strings.TrimSpace(in.Description),
		CreatedBy:    user.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateCompany(ctx, company); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Company{}, ErrCompanyExists
		}
		return domain.Company{}, fmt.Errorf("create company: %w", err)
	}
	return company, nil
}

// ListCompanies returns every company ordered by name.
func (a *App) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	companies, err := a.store.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	slices.SortFunc(companies, func(x, y domain.Company) int {
		if c := strings.Compare(strings.ToLower(x.Name), strings.ToLower(y.Name)); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	return companies, nil
}

// GetCompany looks a company up by id.
func (a *App) GetCompany(ctx context.Context, id string) (domain.Company, error) {
	id = strings.TrimSpace(id)
	if !validID(id) {
		return domain.Company{}, ErrInvalidCompanyRef
	}
	company, ok, err := a.store.GetCompany(ctx, id)
	if err != nil {
		return domain.Company{}, fmt.Errorf("fetch company: %w", err)
	}
	if !ok {
		return domain.Company{}, ErrCompanyNotFound
	}
	return company, nil
}
