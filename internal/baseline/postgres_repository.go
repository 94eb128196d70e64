package baseline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresRepository реализует Repository для PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository создает новый экземпляр PostgresRepository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// NewPostgresRepositoryFromDSN создает репозиторий из строки подключения
func NewPostgresRepositoryFromDSN(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresRepository{db: db}, nil
}

// Close закрывает соединение с БД
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// InitSchema создает таблицу эталонов, если ее нет
func (r *PostgresRepository) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS baselines (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			peak_frequencies JSONB NOT NULL,
			damping_ratios JSONB NOT NULL,
			sensor_energy JSONB NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to init baselines schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SaveBaseline(ctx context.Context, b *Baseline) error {
	freqsJSON, err := json.Marshal(b.PeakFrequencies)
	if err != nil {
		return fmt.Errorf("failed to marshal peak frequencies: %w", err)
	}
	dampingJSON, err := json.Marshal(b.DampingRatios)
	if err != nil {
		return fmt.Errorf("failed to marshal damping ratios: %w", err)
	}
	energyJSON, err := json.Marshal(b.SensorEnergy)
	if err != nil {
		return fmt.Errorf("failed to marshal sensor energy: %w", err)
	}

	query := `
		INSERT INTO baselines (id, name, description, created_at, peak_frequencies, damping_ratios, sensor_energy)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		b.ID, b.Name, b.Description, b.CreatedAt, freqsJSON, dampingJSON, energyJSON)
	if err != nil {
		return fmt.Errorf("failed to save baseline: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListBaselines(ctx context.Context) ([]*Baseline, error) {
	query := `
		SELECT id, name, description, created_at, peak_frequencies, damping_ratios, sensor_energy
		FROM baselines
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list baselines: %w", err)
	}
	defer rows.Close()

	var baselines []*Baseline
	for rows.Next() {
		var b Baseline
		var description sql.NullString
		var freqsJSON, dampingJSON, energyJSON []byte

		if err := rows.Scan(&b.ID, &b.Name, &description, &b.CreatedAt,
			&freqsJSON, &dampingJSON, &energyJSON); err != nil {
			return nil, fmt.Errorf("failed to scan baseline: %w", err)
		}
		b.Description = description.String

		if err := json.Unmarshal(freqsJSON, &b.PeakFrequencies); err != nil {
			return nil, fmt.Errorf("failed to unmarshal peak frequencies: %w", err)
		}
		if err := json.Unmarshal(dampingJSON, &b.DampingRatios); err != nil {
			return nil, fmt.Errorf("failed to unmarshal damping ratios: %w", err)
		}
		if err := json.Unmarshal(energyJSON, &b.SensorEnergy); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sensor energy: %w", err)
		}

		baselines = append(baselines, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate baselines: %w", err)
	}
	return baselines, nil
}
