package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing project name, malformed origin).
// Handlers should map this to HTTP 400.
var ErrValidation = errors.New("validation error")

// ErrForbidden is returned when the caller is authenticated but does not own
// the resource it is trying to change.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidAPIKey is returned by log ingestion when no project carries the
// submitted API key. Handlers map it to HTTP 403.
var ErrInvalidAPIKey = errors.New("invalid api key")

// ErrOriginNotAllowed is returned by log ingestion when the request origin is
// not registered on the project that owns the API key. Handlers map it to 403.
var ErrOriginNotAllowed = errors.New("origin not allowed for project")
