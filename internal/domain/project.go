// Package domain contains the core data types for the Logger API.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (origin, repo, service, handler).
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Identity is the authenticated owner of a request, as asserted by the
// identity provider's access token.
type Identity struct {
	Subject  string
	Username string
	Email    string
}

// Project is a registered client application that may submit logs.
// Origins is logically a set: the service layer deduplicates it on write and
// order carries no meaning.
type Project struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"projectName"`
	Origins       []string  `json:"projectOrigins"`
	OwnerID       string    `json:"ownerId"`
	OwnerUsername string    `json:"ownerUsername"`
	OwnerEmail    string    `json:"ownerEmail"`
	APIKey        string    `json:"apiKey"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HasOrigin reports whether origin is registered on the project.
// The comparison is exact: origins are echoed back verbatim, so no
// normalisation is applied here.
func (p Project) HasOrigin(origin string) bool {
	return slices.Contains(p.Origins, origin)
}

// ProjectOrigins is the projection of a project used to build the origin
// snapshot: just the ID (for diagnostics) and the registered origins.
type ProjectOrigins struct {
	ProjectID uuid.UUID
	Origins   []string
}
