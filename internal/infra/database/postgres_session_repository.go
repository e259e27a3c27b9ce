package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"study_cycle_bot/internal/domain/session"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type PostgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Append(ctx context.Context, s *session.StudySession) error {
	query := `INSERT INTO study_sessions (workspace_id, subject_id, minutes, studied_on)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, s.WorkspaceID, s.SubjectID, s.Minutes, s.StudiedOn).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("error appending study session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) TotalMinutesSince(ctx context.Context, workspaceID int64, since time.Time) (int, error) {
	query := `SELECT COALESCE(SUM(minutes), 0) FROM study_sessions
               WHERE workspace_id = $1 AND created_at >= $2`
	var total int
	if err := r.db.QueryRowContext(ctx, query, workspaceID, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("error summing session minutes: %w", err)
	}
	return total, nil
}

func (r *PostgresSessionRepository) TotalsBySubject(ctx context.Context, workspaceID int64) ([]session.SubjectTotal, error) {
	query := `SELECT subject_id, SUM(minutes), COUNT(*) FROM study_sessions
               WHERE workspace_id = $1 GROUP BY subject_id ORDER BY SUM(minutes) DESC`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("error querying subject totals: %w", err)
	}
	defer rows.Close()

	totals := make([]session.SubjectTotal, 0)
	for rows.Next() {
		t := session.SubjectTotal{}
		if err := rows.Scan(&t.SubjectID, &t.TotalMinutes, &t.Sessions); err != nil {
			return nil, fmt.Errorf("error scanning subject total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subject totals: %w", err)
	}
	return totals, nil
}

var _ session.Repository = (*PostgresSessionRepository)(nil)
