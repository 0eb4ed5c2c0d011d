package domain

import (
	"time"

	"github.com/google/uuid"
)

// Log is a single event submitted by a project through POST /api/log.
// ProjectName is populated on reads only (joined from projects).
type Log struct {
	ID            uuid.UUID `json:"id"`
	ProjectID     uuid.UUID `json:"projectId"`
	ProjectName   string    `json:"projectName,omitempty"`
	Message       string    `json:"message"`
	SeverityLevel string    `json:"severity_level"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewUser is the sign-up payload forwarded to the identity provider.
type NewUser struct {
	Email    string
	Username string
	Password string
}
