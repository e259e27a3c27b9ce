package subject

import (
	"time"
)

// Subject is something a user studies. Names are unique per workspace.
type Subject struct {
	ID          int64
	WorkspaceID int64
	Name        string
	CreatedAt   time.Time
}
