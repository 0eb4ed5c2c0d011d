package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/loggerapp/logger-api/internal/domain"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Message string          `json:"message"`
	Errors  []string        `json:"errors,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details ...string) {
	writeJSON(w, status, ErrorResponse{Message: message, Errors: details})
}

// writeServiceError maps a domain sentinel to its status code. Anything
// unrecognised is logged and reported as 500 without leaking internals.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "Invalid request", unwrapMessage(err))
	case errors.Is(err, domain.ErrInvalidAPIKey):
		writeError(w, http.StatusForbidden, "Invalid API key")
	case errors.Is(err, domain.ErrOriginNotAllowed):
		writeError(w, http.StatusForbidden, "Origin not allowed for this project")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

// decodeBody reads a JSON body into dst and validates it. It writes the
// error response itself and reports whether the handler should continue.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON structure", err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON structure", validationMessages(err)...)
		return false
	}
	return true
}

// validationMessages turns validator field errors into "field: rule" strings
// using the JSON field names.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s: failed %q", jsonFieldPath(fe.Namespace()), fe.Tag()))
	}
	return out
}

// jsonFieldPath drops the leading struct name from a validator namespace,
// e.g. "logRequest.apiKey" becomes "apiKey".
func jsonFieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "validation error: name is required" becomes "name is required".
func unwrapMessage(err error) string {
	msg := err.Error()
	prefix := domain.ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
