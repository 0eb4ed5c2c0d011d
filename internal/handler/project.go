package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/loggerapp/logger-api/internal/domain"
)

type addProjectRequest struct {
	Name    string   `json:"name" validate:"required"`
	Origins []string `json:"origins" validate:"dive,required"`
}

type updateOriginsRequest struct {
	Origins []string `json:"origins" validate:"required,dive,required"`
}

// AddProjectResponse is returned by POST /api/addProject. The API key is
// repeated at the top level for clients of the original API.
type AddProjectResponse struct {
	Message string         `json:"message"`
	APIKey  string         `json:"apiKey"`
	Project domain.Project `json:"project"`
}

// AddProject handles POST /api/addProject.
func (s *Server) AddProject(w http.ResponseWriter, r *http.Request) {
	owner, ok := identity(w, r)
	if !ok {
		return
	}
	var body addProjectRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	created, err := s.projects.Create(r.Context(), owner, body.Name, body.Origins)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddProjectResponse{
		Message: "Project saved",
		APIKey:  created.APIKey,
		Project: created,
	})
}

// UpdateProjectOrigins handles PUT /api/projects/{id}/origins.
func (s *Server) UpdateProjectOrigins(w http.ResponseWriter, r *http.Request) {
	owner, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project id")
		return
	}
	var body updateOriginsRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.projects.UpdateOrigins(r.Context(), owner, id, body.Origins)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ListMyProjects handles GET /api/myProjects.
func (s *Server) ListMyProjects(w http.ResponseWriter, r *http.Request) {
	owner, ok := identity(w, r)
	if !ok {
		return
	}
	params, err := bindPagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	projects, total, err := s.projects.ListMine(r.Context(), owner, params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeList(w, projects, params, total)
}

// ListAllProjects handles GET /api/allProjects.
func (s *Server) ListAllProjects(w http.ResponseWriter, r *http.Request) {
	params, err := bindPagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	projects, total, err := s.projects.ListAll(r.Context(), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeList(w, projects, params, total)
}
