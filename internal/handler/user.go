package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/loggerapp/logger-api/internal/domain"
	"github.com/loggerapp/logger-api/internal/idp"
)

type addUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AddUserResponse is returned by POST /api/addUser with the provider's user
// document.
type AddUserResponse struct {
	Message string          `json:"message"`
	User    json.RawMessage `json:"user"`
}

// AddUser handles POST /api/addUser by creating the user at the identity
// provider. Provider failures are passed through with their status code and
// the provider's body as details.
func (s *Server) AddUser(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		writeError(w, http.StatusServiceUnavailable, "User management is not configured")
		return
	}
	var body addUserRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	user, err := s.users.CreateUser(r.Context(), domain.NewUser{
		Email:    body.Email,
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		var upErr *idp.UpstreamError
		var tokErr *idp.TokenError
		switch {
		case errors.As(err, &upErr):
			writeJSON(w, upErr.Status, ErrorResponse{Message: "Failed to create user; check the submitted data", Details: upErr.Body})
		case errors.As(err, &tokErr) && tokErr.Status != 0:
			writeJSON(w, tokErr.Status, ErrorResponse{Message: "Failed to get access token", Details: tokErr.Body})
		default:
			s.logger.ErrorContext(r.Context(), "create user failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Server error while creating user")
		}
		return
	}
	writeJSON(w, http.StatusCreated, AddUserResponse{Message: "User created", User: user})
}
