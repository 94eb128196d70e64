package session

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// Repository хранит завершенные сессии в долговременном хранилище
type Repository interface {
	SaveSession(ctx context.Context, s *Session) error
	UpdateSession(ctx context.Context, s *Session) error
	ListSessions(ctx context.Context, limit, offset int) ([]*Session, error)
}

// PostgresRepository реализует Repository для PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository создает репозиторий поверх готового подключения
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InitSchema создает таблицу сессий, если ее еще нет
func (r *PostgresRepository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY,
		structure_id TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		stopped_at TIMESTAMPTZ,
		total_duration_ms BIGINT NOT NULL DEFAULT 0,
		total_samples BIGINT NOT NULL DEFAULT 0,
		total_windows BIGINT NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_structure_id ON sessions(structure_id);
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create sessions schema: %w", err)
	}
	log.Println("[POSTGRES] Sessions schema initialized")
	return nil
}

func (r *PostgresRepository) SaveSession(ctx context.Context, s *Session) error {
	query := `
	INSERT INTO sessions (id, structure_id, status, started_at, stopped_at,
		total_duration_ms, total_samples, total_windows, last_error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.StructureID, string(s.Status), s.StartedAt, s.StoppedAt,
		s.TotalDurationMs, s.TotalSamples, s.TotalWindows, s.LastError)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *PostgresRepository) UpdateSession(ctx context.Context, s *Session) error {
	query := `
	UPDATE sessions
	SET status = $2, stopped_at = $3, total_duration_ms = $4,
		total_samples = $5, total_windows = $6, last_error = $7
	WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		s.ID, string(s.Status), s.StoppedAt,
		s.TotalDurationMs, s.TotalSamples, s.TotalWindows, s.LastError)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", s.ID, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("session %s not found", s.ID)
	}
	return nil
}

func (r *PostgresRepository) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	query := `
	SELECT id, structure_id, status, started_at, stopped_at,
		total_duration_ms, total_samples, total_windows, last_error
	FROM sessions
	ORDER BY started_at DESC
	LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		var status string
		var stoppedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.StructureID, &status, &s.StartedAt, &stoppedAt,
			&s.TotalDurationMs, &s.TotalSamples, &s.TotalWindows, &s.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.Status = Status(status)
		if stoppedAt.Valid {
			t := stoppedAt.Time.UTC()
			s.StoppedAt = &t
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}
