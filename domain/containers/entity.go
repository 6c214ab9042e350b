package containers

import (
	"regexp"
	"time"

	"github.com/uptrace/bun"
)

// Container represents a container entity from kb.containers table.
// A container is the isolation boundary for documents and search.
type Container struct {
	bun.BaseModel `bun:"table:kb.containers"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name" json:"name"`
	Description string    `bun:"description" json:"description"`
	CreatedAt   time.Time `bun:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at" json:"updatedAt"`

	// Computed fields (populated via subquery, not stored)
	DocumentCount int `bun:"document_count,scanonly" json:"documentCount"`
	FolderCount   int `bun:"folder_count,scanonly" json:"folderCount"`
}

// nameRe validates container names: lower-case alphanumerics and hyphens,
// no leading or trailing hyphen
var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

// ValidName reports whether a container name is acceptable
func ValidName(name string) bool {
	return len(name) >= 2 && len(name) <= 64 && nameRe.MatchString(name)
}

// CreateContainerRequest is the request body for creating a container
type CreateContainerRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateContainerRequest is the request body for updating a container
type UpdateContainerRequest struct {
	Description *string `json:"description"`
}

// ListResult contains the result of listing containers
type ListResult struct {
	Containers []Container `json:"containers"`
	Total      int         `json:"total"`
}

// DeleteResponse is the response for container deletion
type DeleteResponse struct {
	Status string `json:"status"`
}
