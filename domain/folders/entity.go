package folders

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Folder represents a folder entity from kb.folders table. A folder is a
// virtual path prefix inside a container; documents reference folders only
// through their own path value.
type Folder struct {
	bun.BaseModel `bun:"table:kb.folders"`

	ID          string    `bun:"id,pk" json:"id"`
	ContainerID string    `bun:"container_id" json:"containerId"`
	Path        string    `bun:"path" json:"path"`
	CreatedAt   time.Time `bun:"created_at" json:"createdAt"`

	// Computed fields
	DocumentCount int `bun:"document_count,scanonly" json:"documentCount"`
}

// NormalizePath canonicalizes a folder path: forward slashes only, one
// leading and one trailing slash, no empty segments.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })

	clean := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		clean = append(clean, seg)
	}

	if len(clean) == 0 {
		return "/"
	}
	return "/" + strings.Join(clean, "/") + "/"
}

// CreateFolderRequest is the request body for creating a folder
type CreateFolderRequest struct {
	Path string `json:"path"`
}

// ListResult contains the result of listing folders
type ListResult struct {
	Folders []Folder `json:"folders"`
	Total   int      `json:"total"`
}

// DeleteResponse is the response for folder deletion
type DeleteResponse struct {
	Status           string `json:"status"`
	FoldersDeleted   int    `json:"foldersDeleted"`
	DocumentsDeleted int    `json:"documentsDeleted"`
}
