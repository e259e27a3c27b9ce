// internal/domain/cycle/repository.go
package cycle

import (
	"context"
)

// Repository defines persistence for Cycle+Item aggregates, scoped by
// workspace. Every mutating method is transactional: it either applies
// fully or leaves stored state unchanged.
type Repository interface {
	// Create persists a new cycle with its items. When activate is true, or
	// when the workspace has no cycles yet, any currently active cycle is
	// deactivated and the new one activated in the same transaction.
	Create(ctx context.Context, c *Cycle, activate bool) error

	// GetByID fetches a cycle with its items. Returns the store's not-found
	// sentinel when the id is unknown to the workspace.
	GetByID(ctx context.Context, workspaceID, cycleID int64) (*Cycle, error)

	// GetActive fetches the workspace's active cycle with its items.
	GetActive(ctx context.Context, workspaceID int64) (*Cycle, error)

	// ListByWorkspace returns all of a workspace's cycles with their items,
	// ordered by creation.
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]*Cycle, error)

	// Activate flips the active flag off the current cycle and onto the
	// target cycle in one transaction. Positions and accumulated minutes on
	// both cycles are untouched: switching is non-destructive and resumable.
	Activate(ctx context.Context, workspaceID, cycleID int64) (*Cycle, error)

	// Delete removes a cycle and its items. Deleting the active cycle
	// leaves the workspace with no active cycle.
	Delete(ctx context.Context, workspaceID, cycleID int64) error

	// ReplaceItems swaps a cycle's item list wholesale (editing is a full
	// replace, not a per-item patch) and resets the position pointer into
	// the new list's bounds.
	ReplaceItems(ctx context.Context, workspaceID, cycleID int64, items []Item) (*Cycle, error)

	// UpdateActiveLocked loads the workspace's active cycle under its row
	// lock, applies mutate to the aggregate, and persists position, epoch,
	// completion and per-item accumulated minutes before releasing the
	// lock. An error from mutate aborts the transaction untouched. This is
	// the single write path shared by session accumulation, advance and
	// reset, so those mutations can never interleave.
	UpdateActiveLocked(ctx context.Context, workspaceID int64, mutate func(*Cycle) error) (*Cycle, error)
}
