package handler

import (
	"errors"
	"net/http"

	"github.com/loggerapp/logger-api/internal/origin"
)

// ReloadOrigins handles POST /api/admin/origins/reload: the allowed-origin
// snapshot is rebuilt from the store and peers are told to do the same.
// Only configured admin subjects may call it, and calls are rate-limited
// because each one reads every project and fans out to all replicas.
func (s *Server) ReloadOrigins(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	if _, admin := s.admins[caller.Subject]; !admin {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	if s.reloader == nil || s.origins == nil {
		writeError(w, http.StatusServiceUnavailable, "Origin reload is not available")
		return
	}
	if s.reloads != nil && !s.reloads.Allow() {
		writeError(w, http.StatusTooManyRequests, "Origin reload requested too often; try again later")
		return
	}

	if err := s.reloader.Refresh(r.Context()); err != nil {
		if errors.Is(err, origin.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "Origin store unavailable; previous origins kept")
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"origins": len(s.origins.Origins())})
}
