// internal/infra/database/postgres_cycle_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"study_cycle_bot/internal/domain/cycle"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors specific to the cycle repository.
var (
	ErrCycleNotFound       = fmt.Errorf("study cycle not found")
	ErrNoActiveCycle       = fmt.Errorf("workspace has no active cycle")
	ErrConcurrencyConflict = fmt.Errorf("cycle was modified concurrently, retry the operation")
)

type PostgresCycleRepository struct {
	db *sql.DB
}

func NewPostgresCycleRepository(db *sql.DB) *PostgresCycleRepository {
	return &PostgresCycleRepository{db: db}
}

// queryer lets the scan helpers run against both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const cycleColumns = `id, workspace_id, name, active, position, epoch, version, completed_at, created_at, updated_at`

func scanCycle(row *sql.Row) (*cycle.Cycle, error) {
	c := &cycle.Cycle{}
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Active, &c.Position,
		&c.Epoch, &c.Version, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func loadItems(ctx context.Context, q queryer, cycleID int64) ([]cycle.Item, error) {
	query := `SELECT id, cycle_id, subject_id, item_order, target_minutes, accumulated_minutes
               FROM cycle_items WHERE cycle_id = $1 ORDER BY item_order`
	rows, err := q.QueryContext(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("error querying cycle items: %w", err)
	}
	defer rows.Close()

	items := make([]cycle.Item, 0)
	for rows.Next() {
		it := cycle.Item{}
		if err := rows.Scan(&it.ID, &it.CycleID, &it.SubjectID, &it.Order, &it.TargetMinutes, &it.AccumulatedMinutes); err != nil {
			return nil, fmt.Errorf("error scanning cycle item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycle items: %w", err)
	}
	return items, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, cycleID int64, items []cycle.Item) ([]cycle.Item, error) {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cycle_items (cycle_id, subject_id, item_order, target_minutes, accumulated_minutes)
                                         VALUES ($1, $2, $3, $4, $5)
                                         RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer stmt.Close()

	out := make([]cycle.Item, len(items))
	for i, it := range items {
		it.CycleID = cycleID
		if err := stmt.QueryRowContext(ctx, cycleID, it.SubjectID, it.Order, it.TargetMinutes, it.AccumulatedMinutes).Scan(&it.ID); err != nil {
			return nil, fmt.Errorf("error inserting cycle item (order %d): %w", it.Order, err)
		}
		out[i] = it
	}
	return out, nil
}

func (r *PostgresCycleRepository) Create(ctx context.Context, c *cycle.Cycle, activate bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for cycle create: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM study_cycles WHERE workspace_id = $1`, c.WorkspaceID).Scan(&existing); err != nil {
		return fmt.Errorf("error counting workspace cycles: %w", err)
	}

	// The workspace's first cycle is always activated.
	c.Active = activate || existing == 0
	if c.Active {
		if _, err := tx.ExecContext(ctx, `UPDATE study_cycles SET active = FALSE, updated_at = NOW()
                                          WHERE workspace_id = $1 AND active`, c.WorkspaceID); err != nil {
			return fmt.Errorf("error deactivating current cycle: %w", err)
		}
	}

	if c.Epoch == "" {
		c.Epoch = cycle.NewEpoch()
	}
	query := `INSERT INTO study_cycles (workspace_id, name, active, position, epoch)
               VALUES ($1, $2, $3, 0, $4)
               RETURNING id, version, created_at, updated_at`
	if err := tx.QueryRowContext(ctx, query, c.WorkspaceID, c.Name, c.Active, c.Epoch).
		Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("error creating study cycle: %w", err)
	}

	inserted, err := insertItems(ctx, tx, c.ID, c.Items)
	if err != nil {
		return err
	}
	c.Items = inserted

	return tx.Commit()
}

func (r *PostgresCycleRepository) GetByID(ctx context.Context, workspaceID, cycleID int64) (*cycle.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM study_cycles WHERE id = $1 AND workspace_id = $2`
	c, err := scanCycle(r.db.QueryRowContext(ctx, query, cycleID, workspaceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("error getting cycle by ID: %w", err)
	}
	if c.Items, err = loadItems(ctx, r.db, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresCycleRepository) GetActive(ctx context.Context, workspaceID int64) (*cycle.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM study_cycles WHERE workspace_id = $1 AND active`
	c, err := scanCycle(r.db.QueryRowContext(ctx, query, workspaceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoActiveCycle
		}
		return nil, fmt.Errorf("error getting active cycle: %w", err)
	}
	if c.Items, err = loadItems(ctx, r.db, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresCycleRepository) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*cycle.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM study_cycles WHERE workspace_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("error listing workspace cycles: %w", err)
	}
	defer rows.Close()

	cycles := make([]*cycle.Cycle, 0)
	for rows.Next() {
		c := &cycle.Cycle{}
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Active, &c.Position,
			&c.Epoch, &c.Version, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning cycle row: %w", err)
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycle rows: %w", err)
	}
	for _, c := range cycles {
		if c.Items, err = loadItems(ctx, r.db, c.ID); err != nil {
			return nil, err
		}
	}
	return cycles, nil
}

func (r *PostgresCycleRepository) Activate(ctx context.Context, workspaceID, cycleID int64) (*cycle.Cycle, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for activate: %w", err)
	}
	defer tx.Rollback()

	// Lock the workspace's cycle rows so concurrent activations serialize
	// and "exactly one active cycle" holds.
	if _, err := tx.ExecContext(ctx, `SELECT id FROM study_cycles WHERE workspace_id = $1 FOR UPDATE`, workspaceID); err != nil {
		return nil, fmt.Errorf("error locking workspace cycles: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT TRUE FROM study_cycles WHERE id = $1 AND workspace_id = $2`,
		cycleID, workspaceID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("error checking cycle ownership: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE study_cycles SET active = FALSE, updated_at = NOW()
                                      WHERE workspace_id = $1 AND active AND id <> $2`, workspaceID, cycleID); err != nil {
		return nil, fmt.Errorf("error deactivating current cycle: %w", err)
	}
	// Position and accumulated minutes are untouched: switching cycles is
	// non-destructive and resumable.
	query := `UPDATE study_cycles SET active = TRUE, updated_at = NOW() WHERE id = $1
               RETURNING ` + cycleColumns
	c, err := scanCycle(tx.QueryRowContext(ctx, query, cycleID))
	if err != nil {
		return nil, fmt.Errorf("error activating cycle: %w", err)
	}
	if c.Items, err = loadItems(ctx, tx, c.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit activate: %w", err)
	}
	return c, nil
}

func (r *PostgresCycleRepository) Delete(ctx context.Context, workspaceID, cycleID int64) error {
	// Items cascade. Logged study sessions are untouched.
	res, err := r.db.ExecContext(ctx, `DELETE FROM study_cycles WHERE id = $1 AND workspace_id = $2`, cycleID, workspaceID)
	if err != nil {
		return fmt.Errorf("error deleting cycle: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading delete result: %w", err)
	}
	if affected == 0 {
		return ErrCycleNotFound
	}
	return nil
}

func (r *PostgresCycleRepository) ReplaceItems(ctx context.Context, workspaceID, cycleID int64, items []cycle.Item) (*cycle.Cycle, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for item replace: %w", err)
	}
	defer tx.Rollback()

	lockQuery := `SELECT ` + cycleColumns + ` FROM study_cycles WHERE id = $1 AND workspace_id = $2 FOR UPDATE`
	c, err := scanCycle(tx.QueryRowContext(ctx, lockQuery, cycleID, workspaceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("error locking cycle for item replace: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cycle_items WHERE cycle_id = $1`, cycleID); err != nil {
		return nil, fmt.Errorf("error deleting old cycle items: %w", err)
	}
	for i := range items {
		items[i].AccumulatedMinutes = 0
	}
	if c.Items, err = insertItems(ctx, tx, cycleID, items); err != nil {
		return nil, err
	}

	// A wholesale item replace starts a fresh lap: new list, position zero,
	// completion cleared, fresh epoch.
	c.Position = 0
	c.CompletedAt = sql.NullTime{}
	c.Epoch = cycle.NewEpoch()

	updateQuery := `UPDATE study_cycles
               SET position = 0, completed_at = NULL, epoch = $1, version = version + 1, updated_at = NOW()
               WHERE id = $2 AND version = $3
               RETURNING version, updated_at`
	if err := tx.QueryRowContext(ctx, updateQuery, c.Epoch, c.ID, c.Version).Scan(&c.Version, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("error updating cycle after item replace: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item replace: %w", err)
	}
	return c, nil
}

// UpdateActiveLocked is the single write path for session accumulation,
// advance and reset. It loads the active cycle under its row lock, lets
// mutate rework the aggregate in memory, and persists the outcome before the
// lock is released, so those mutations can never interleave. An error from
// mutate rolls everything back.
func (r *PostgresCycleRepository) UpdateActiveLocked(ctx context.Context, workspaceID int64, mutate func(*cycle.Cycle) error) (*cycle.Cycle, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for cycle mutation: %w", err)
	}
	defer tx.Rollback()

	lockQuery := `SELECT ` + cycleColumns + ` FROM study_cycles WHERE workspace_id = $1 AND active FOR UPDATE`
	c, err := scanCycle(tx.QueryRowContext(ctx, lockQuery, workspaceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoActiveCycle
		}
		return nil, fmt.Errorf("error locking active cycle: %w", err)
	}
	if c.Items, err = loadItems(ctx, tx, c.ID); err != nil {
		return nil, err
	}

	expectedVersion := c.Version
	if err := mutate(c); err != nil {
		return nil, err
	}

	var completedAt any
	if c.CompletedAt.Valid {
		completedAt = c.CompletedAt.Time
	}
	updateQuery := `UPDATE study_cycles
               SET position = $1, epoch = $2, completed_at = $3, version = version + 1, updated_at = NOW()
               WHERE id = $4 AND version = $5
               RETURNING version, updated_at`
	if err := tx.QueryRowContext(ctx, updateQuery, c.Position, c.Epoch, completedAt, c.ID, expectedVersion).
		Scan(&c.Version, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			// The row lock should make this impossible; the stamp catches
			// any write path that slipped around it.
			return nil, ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("error persisting cycle mutation: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `UPDATE cycle_items SET accumulated_minutes = $1 WHERE id = $2`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare item update: %w", err)
	}
	defer stmt.Close()
	for _, it := range c.Items {
		if _, err := stmt.ExecContext(ctx, it.AccumulatedMinutes, it.ID); err != nil {
			return nil, fmt.Errorf("error persisting item minutes (item %d): %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cycle mutation: %w", err)
	}
	return c, nil
}

var _ cycle.Repository = (*PostgresCycleRepository)(nil)
