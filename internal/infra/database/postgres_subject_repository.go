package database

import (
	"context"
	"database/sql"
	"fmt"

	"study_cycle_bot/internal/domain/subject"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var ErrSubjectNotFound = fmt.Errorf("subject not found")

type PostgresSubjectRepository struct {
	db *sql.DB
}

func NewPostgresSubjectRepository(db *sql.DB) *PostgresSubjectRepository {
	return &PostgresSubjectRepository{db: db}
}

func (r *PostgresSubjectRepository) GetOrCreateByName(ctx context.Context, workspaceID int64, name string) (*subject.Subject, error) {
	s := &subject.Subject{WorkspaceID: workspaceID, Name: name}
	query := `INSERT INTO subjects (workspace_id, name)
               VALUES ($1, $2)
               ON CONFLICT (workspace_id, name) DO UPDATE SET name = EXCLUDED.name
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, workspaceID, name).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error getting or creating subject %q: %w", name, err)
	}
	return s, nil
}

func (r *PostgresSubjectRepository) GetByID(ctx context.Context, workspaceID, id int64) (*subject.Subject, error) {
	query := `SELECT id, workspace_id, name, created_at FROM subjects WHERE id = $1 AND workspace_id = $2`
	s := &subject.Subject{}
	err := r.db.QueryRowContext(ctx, query, id, workspaceID).Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("error getting subject by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresSubjectRepository) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*subject.Subject, error) {
	query := `SELECT id, workspace_id, name, created_at FROM subjects WHERE workspace_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("error listing subjects: %w", err)
	}
	defer rows.Close()

	subjects := make([]*subject.Subject, 0)
	for rows.Next() {
		s := &subject.Subject{}
		if err := rows.Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subjects: %w", err)
	}
	return subjects, nil
}

// GetName implements subject.Catalog for projection display.
func (r *PostgresSubjectRepository) GetName(ctx context.Context, workspaceID, subjectID int64) (string, error) {
	s, err := r.GetByID(ctx, workspaceID, subjectID)
	if err != nil {
		return "", err
	}
	return s.Name, nil
}

var (
	_ subject.Repository = (*PostgresSubjectRepository)(nil)
	_ subject.Catalog    = (*PostgresSubjectRepository)(nil)
)
