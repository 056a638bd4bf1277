package server

import (
	"net/http"

	"jobboard/pkg/domain"
	"jobboard/services/api/internal/app"
)

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req app.CompanyInput
	if !decodeJSON(w, r, &req) {
		return
	}
	company, err := s.app.CreateCompany(r.Context(), user, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, company, "Company created successfully")
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.app.ListCompanies(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, map[string]any{"companies": companies, "count": len(companies)}, "Companies fetched successfully")
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := s.app.GetCompany(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, company, "Company fetched successfully")
}
