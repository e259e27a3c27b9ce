// internal/domain/achievement/gate.go
package achievement

import (
	"context"
	"fmt"
	"time"
)

// Type names a family of celebrations.
type Type string

const (
	// TypeCycleComplete marks the completion of one lap of a study cycle.
	// Identifiers are epoch-qualified, so every reset yields a fresh one;
	// these records are kept forever (cycle count is small and bounded).
	TypeCycleComplete Type = "cycle_complete"
	// TypeWeeklyGoal marks a calendar week whose logged minutes reached the
	// configured goal. Identifiers embed the week-start date and records are
	// pruned once that date is more than PruneAfter in the past.
	TypeWeeklyGoal Type = "weekly_goal"
)

// PruneAfter is how long weekly-goal records are retained.
const PruneAfter = 90 * 24 * time.Hour

// Gate decides exactly-once whether a celebration should fire. It only
// deduplicates; detecting the transition (e.g. "cycle was incomplete, is
// complete now") is the caller's job.
//
// Before the backing store has hydrated, ShouldCelebrate must report false
// for everything: the fail-safe bias is to under-celebrate, never to flash a
// duplicate while state is still loading.
type Gate interface {
	ShouldCelebrate(t Type, identifier string) bool
	// MarkCelebrated durably records the decision. Callers fire the
	// celebration in the same logical step, not after an async animation,
	// so a second transition detection cannot slip in before the mark.
	MarkCelebrated(ctx context.Context, t Type, identifier string) error
}

// Key builds the composite record key.
func Key(t Type, identifier string) string {
	return string(t) + ":" + identifier
}

// CycleCompletionIdentifier keys one completion instance of a cycle. The
// epoch changes on every reset, which is what makes a re-run lap celebrate
// again.
func CycleCompletionIdentifier(cycleID int64, epoch string) string {
	return fmt.Sprintf("%d:%s", cycleID, epoch)
}

// WeeklyGoalIdentifier keys one workspace-week. The date suffix is what the
// pruner parses.
func WeeklyGoalIdentifier(workspaceID int64, weekStart time.Time) string {
	return fmt.Sprintf("%d:%s", workspaceID, weekStart.Format("2006-01-02"))
}

// WeekStart truncates t to the Monday 00:00 UTC beginning its calendar week.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -daysSinceMonday).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
