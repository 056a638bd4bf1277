package server

import (
	"fmt"
	"net/http"

	"jobboard/pkg/domain"
	"jobboard/services/api/internal/app"
)

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.ListJobs(r.Context(), r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res, "Jobs fetched successfully")
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res, "Suggestions fetched successfully")
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.app.Featured(r.Context(), r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, map[string]any{"jobs": jobs}, "Featured jobs fetched successfully")
}

func (s *Server) handleMyJobs(w http.ResponseWriter, r *http.Request, user domain.User) {
	res, err := s.app.MyJobs(r.Context(), user, r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res, "My jobs fetched successfully")
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, viewer *domain.User) {
	job, err := s.app.GetJob(r.Context(), r.PathValue("id"), viewer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, job, "Job fetched successfully")
}

func (s *Server) handleJobBySlug(w http.ResponseWriter, r *http.Request, viewer *domain.User) {
	job, err := s.app.GetJobBySlug(r.Context(), r.PathValue("slug"), viewer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, job, "Job fetched successfully")
}

// handleJobQuery serves the read-only sub-resources of a job. The applicants
// listing needs an owner, the count is public.
func (s *Server) handleJobQuery(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("action") {
	case "applicants":
		s.authenticated(s.handleApplicants).ServeHTTP(w, r)
	case "applicants-count":
		res, err := s.app.CountApplicants(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeResult(w, res, "Applicants count fetched successfully")
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleApplicants(w http.ResponseWriter, r *http.Request, user domain.User) {
	applicants, err := s.app.ListApplicants(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, map[string]any{"applicants": applicants, "count": len(applicants)}, "Applicants fetched successfully")
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req app.JobInput
	if !decodeJSON(w, r, &req) {
		return
	}
	job, err := s.app.CreateJob(r.Context(), user, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, job, "Job created successfully")
}

func (s *Server) handleCreateJobsBulk(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req []app.JobInput
	if !decodeJSON(w, r, &req) {
		return
	}
	jobs, err := s.app.CreateJobsBulk(r.Context(), user, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, map[string]any{"jobs": jobs, "count": len(jobs)}, fmt.Sprintf("%d jobs created successfully", len(jobs)))
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req app.JobUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	job, err := s.app.UpdateJob(r.Context(), user, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, job, "Job updated successfully")
}

func (s *Server) handleJobAction(w http.ResponseWriter, r *http.Request, user domain.User) {
	var (
		job domain.Job
		err error
		msg string
	)
	switch r.PathValue("action") {
	case "close":
		job, err = s.app.CloseJob(r.Context(), user, r.PathValue("id"))
		msg = "Job closed successfully"
	case "publish":
		job, err = s.app.PublishJob(r.Context(), user, r.PathValue("id"))
		msg = "Job published successfully"
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, job, msg)
}

func (s *Server) handleArchiveJob(w http.ResponseWriter, r *http.Request, user domain.User) {
	job, err := s.app.ArchiveJob(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, job, "Job archived successfully")
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request, user domain.User) {
	if err := s.app.DeleteJobPermanently(r.Context(), user, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, 1, "Job permanently deleted")
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req app.ApplyInput
	if !decodeJSON(w, r, &req) {
		return
	}
	application, err := s.app.ApplyToJob(r.Context(), user, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, application, "Application submitted successfully")
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, viewer *domain.User) {
	res, err := s.app.RecordJobView(r.Context(), r.PathValue("id"), s.visitorKey(r, viewer))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res, "Job view recorded")
}
