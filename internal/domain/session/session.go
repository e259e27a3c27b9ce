package session

import (
	"time"
)

// StudySession is one append-only log entry of study time. StudiedOn is the
// user-facing study date; cycle accumulation happens at delivery time
// regardless of it (backdating never rewrites a lap).
type StudySession struct {
	ID          int64
	WorkspaceID int64
	SubjectID   int64
	Minutes     int
	StudiedOn   time.Time
	CreatedAt   time.Time
}

// SubjectTotal is a lifetime per-subject sum over the session log.
type SubjectTotal struct {
	SubjectID    int64
	TotalMinutes int
	Sessions     int
}
