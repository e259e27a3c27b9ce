package session

import (
	"context"
	"time"
)

// Repository is the append-only session log. Rows are never updated or
// deleted; cycle resets and deletions leave history intact.
type Repository interface {
	Append(ctx context.Context, s *StudySession) error
	// TotalMinutesSince sums a workspace's logged minutes recorded at or
	// after the given instant (used for the weekly goal check).
	TotalMinutesSince(ctx context.Context, workspaceID int64, since time.Time) (int, error)
	// TotalsBySubject returns lifetime per-subject totals for a workspace.
	TotalsBySubject(ctx context.Context, workspaceID int64) ([]SubjectTotal, error)
}
