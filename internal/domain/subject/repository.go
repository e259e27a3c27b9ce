package subject

import (
	"context"
)

// Repository defines the operations for persisting and resolving subjects.
type Repository interface {
	GetOrCreateByName(ctx context.Context, workspaceID int64, name string) (*Subject, error)
	GetByID(ctx context.Context, workspaceID, id int64) (*Subject, error)
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]*Subject, error)
}

// Catalog is the read-only name lookup used for projection display. Kept
// separate from Repository so the suggestion path depends on nothing more.
type Catalog interface {
	GetName(ctx context.Context, workspaceID, subjectID int64) (string, error)
}
