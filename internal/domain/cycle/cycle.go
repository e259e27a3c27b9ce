// internal/domain/cycle/cycle.go
package cycle

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxNameLength bounds the user-supplied cycle name.
const MaxNameLength = 50

// State machine errors. Services translate these to user-facing replies.
var (
	// ErrCycleComplete is returned when an operation is illegal because the
	// cycle has already reached its terminal position. Only Reset exits it.
	ErrCycleComplete = errors.New("cycle is complete; reset it to study again")
	// ErrTargetNotReached is returned by Advance when the current item has
	// not met its target and the caller did not force the advance.
	ErrTargetNotReached = errors.New("not enough accumulated time to advance")
)

// Validation errors, rejected before any mutation touches storage.
var (
	ErrNoItems           = errors.New("cycle must have at least one item")
	ErrNonPositiveTarget = errors.New("item target minutes must be positive")
	ErrDuplicateOrder    = errors.New("duplicate item order within cycle")
	ErrNameTooLong       = fmt.Errorf("cycle name exceeds %d characters", MaxNameLength)
	ErrEmptyName         = errors.New("cycle name must not be empty")
)

// Cycle is an ordered rotation of subjects with per-subject time targets.
// Position indexes into Items; Position == len(Items) encodes "complete".
// Epoch identifies the current lap attempt and changes on every reset, so
// downstream dedup keys built from it become fresh after a reset.
// Corresponds to the 'study_cycles' table.
type Cycle struct {
	ID          int64
	WorkspaceID int64
	Name        string
	Active      bool
	Position    int
	Epoch       string
	Version     int64 // optimistic stamp, bumped on every persisted mutation
	CompletedAt sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []Item
}

// Item is one slot in the rotation. Order is the rotation sequence, unique
// within a cycle. AccumulatedMinutes reflects only the current lap.
// Corresponds to the 'cycle_items' table.
type Item struct {
	ID                 int64
	CycleID            int64
	SubjectID          int64
	Order              int
	TargetMinutes      int
	AccumulatedMinutes int
}

// IsComplete reports whether item at the given index has met its target.
func (it Item) IsComplete() bool {
	return it.AccumulatedMinutes >= it.TargetMinutes
}

// NewEpoch returns a fresh epoch value, distinct from all prior epochs.
func NewEpoch() string {
	return uuid.NewString()
}

// IsComplete reports whether the cycle has reached its terminal position.
func (c *Cycle) IsComplete() bool {
	return c.Position >= len(c.Items)
}

// CurrentItem returns the item at the position pointer, or nil when the
// cycle is complete.
func (c *Cycle) CurrentItem() *Item {
	if c.IsComplete() {
		return nil
	}
	return &c.Items[c.Position]
}

// IsCurrentComplete reports whether the current item has met its target.
// False when the cycle itself is complete.
func (c *Cycle) IsCurrentComplete() bool {
	cur := c.CurrentItem()
	return cur != nil && cur.IsComplete()
}

// ApplySession credits a logged session's minutes to the current item and
// reports whether anything was credited. Minutes for a non-current subject
// never count toward cycle progress, and a complete cycle ignores sessions
// entirely (no retroactive reopening of a lapped item).
func (c *Cycle) ApplySession(subjectID int64, minutes int) bool {
	cur := c.CurrentItem()
	if cur == nil || cur.SubjectID != subjectID || minutes <= 0 {
		return false
	}
	cur.AccumulatedMinutes += minutes
	return true
}

// Advance moves the position pointer forward one item. The item being left
// behind keeps its final accumulated minutes as a lap record. When the new
// position is past the last item, CompletedAt is stamped; that is the sole
// completion transition. force lets the user skip the current item without
// meeting its target and never inflates accumulated minutes.
func (c *Cycle) Advance(force bool, now time.Time) error {
	if c.IsComplete() {
		return ErrCycleComplete
	}
	if !force && !c.IsCurrentComplete() {
		return ErrTargetNotReached
	}
	c.Position++
	if c.IsComplete() {
		c.CompletedAt = sql.NullTime{Time: now, Valid: true}
	}
	return nil
}

// Reset starts a fresh lap: position back to zero, every counter zeroed,
// completion cleared, and a new epoch minted. Legal in any state. Logged
// session history is untouched; only rotation bookkeeping resets.
func (c *Cycle) Reset() {
	c.Position = 0
	for i := range c.Items {
		c.Items[i].AccumulatedMinutes = 0
	}
	c.CompletedAt = sql.NullTime{}
	c.Epoch = NewEpoch()
}

// ValidateName checks the user-supplied cycle name.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ValidateItems checks an item list before it is persisted: non-empty,
// positive targets, no duplicate order values.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	seen := make(map[int]bool, len(items))
	for _, it := range items {
		if it.TargetMinutes <= 0 {
			return ErrNonPositiveTarget
		}
		if seen[it.Order] {
			return ErrDuplicateOrder
		}
		seen[it.Order] = true
	}
	return nil
}
