package handler

import (
	"net/http"

	"github.com/loggerapp/logger-api/internal/auth"
	"github.com/loggerapp/logger-api/internal/domain"
	"github.com/loggerapp/logger-api/internal/service"
)

type createLogRequest struct {
	APIKey        string `json:"apiKey" validate:"required"`
	Message       string `json:"message" validate:"required"`
	SeverityLevel string `json:"severity_level" validate:"required"`
}

// CreateLog handles POST /api/log. The caller is identified by its API key
// and must send an Origin registered on that key's project.
func (s *Server) CreateLog(w http.ResponseWriter, r *http.Request) {
	var body createLogRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		writeError(w, http.StatusBadRequest, "Could not read the request origin")
		return
	}

	if _, err := s.logs.Ingest(r.Context(), service.IngestRequest{
		APIKey:        body.APIKey,
		Origin:        origin,
		Message:       body.Message,
		SeverityLevel: body.SeverityLevel,
	}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Log saved"})
}

// ListMyLogs handles GET /api/myLogs.
func (s *Server) ListMyLogs(w http.ResponseWriter, r *http.Request) {
	owner, ok := identity(w, r)
	if !ok {
		return
	}
	params, err := bindPagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	logs, total, err := s.logs.ListMine(r.Context(), owner, params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeList(w, logs, params, total)
}

// ListAllLogs handles GET /api/allLogs.
func (s *Server) ListAllLogs(w http.ResponseWriter, r *http.Request) {
	params, err := bindPagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	logs, total, err := s.logs.ListAll(r.Context(), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeList(w, logs, params, total)
}

// identity returns the verified caller. A missing identity means the route
// was registered without the auth middleware, so it is answered with 401.
func identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or missing token")
	}
	return id, ok
}
