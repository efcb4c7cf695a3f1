package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"convertly/internal/model"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const conversionsSchema = `
CREATE TABLE IF NOT EXISTS conversions (
	id              VARCHAR PRIMARY KEY,
	file_name       TEXT NOT NULL,
	original_format TEXT NOT NULL,
	target_format   TEXT NOT NULL,
	settings        JSONB,
	status          TEXT NOT NULL DEFAULT 'pending',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at    TIMESTAMPTZ
)`

type postgresRepository struct {
	db *sql.DB
}

// NewPostgres opens a PostgreSQL-backed conversion repository and ensures
// the conversions table exists.
func NewPostgres(databaseURL string) (ConversionRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(conversionsSchema); err != nil {
		return nil, fmt.Errorf("failed to ensure conversions table: %w", err)
	}

	return &postgresRepository{db: db}, nil
}

func (r *postgresRepository) Create(ctx context.Context, fileName, originalFormat, targetFormat string, settings model.ConversionSettings) (*model.Conversion, error) {
	conv := &model.Conversion{
		ID:             uuid.NewString(),
		FileName:       fileName,
		OriginalFormat: originalFormat,
		TargetFormat:   targetFormat,
		Settings:       settings,
		Status:         model.StatusPending,
		CreatedAt:      time.Now(),
	}

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		INSERT INTO conversions (id, file_name, original_format, target_format, settings, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		conv.ID,
		conv.FileName,
		conv.OriginalFormat,
		conv.TargetFormat,
		settingsJSON,
		conv.Status,
		conv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion: %w", err)
	}

	return conv, nil
}

func (r *postgresRepository) Update(ctx context.Context, id string, upd ConversionUpdate) (*model.Conversion, error) {
	// Single-writer-per-record holds, so read-then-write is safe here.
	conv, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Status != "" {
		if !conv.Status.CanTransition(upd.Status) {
			return nil, fmt.Errorf("invalid status transition %s -> %s", conv.Status, upd.Status)
		}
		conv.Status = upd.Status
	}
	if upd.CompletedAt != nil {
		conv.CompletedAt = upd.CompletedAt
	}

	query := `UPDATE conversions SET status = $1, completed_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, conv.Status, conv.CompletedAt, id); err != nil {
		return nil, fmt.Errorf("failed to update conversion: %w", err)
	}

	return conv, nil
}

func (r *postgresRepository) Get(ctx context.Context, id string) (*model.Conversion, error) {
	query := `
		SELECT id, file_name, original_format, target_format, settings, status, created_at, completed_at
		FROM conversions
		WHERE id = $1
	`

	var conv model.Conversion
	var settingsJSON []byte
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID,
		&conv.FileName,
		&conv.OriginalFormat,
		&conv.TargetFormat,
		&settingsJSON,
		&conv.Status,
		&conv.CreatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion: %w", err)
	}

	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &conv.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}
	if completedAt.Valid {
		conv.CompletedAt = &completedAt.Time
	}

	return &conv, nil
}

func (r *postgresRepository) List(ctx context.Context, limit int) ([]model.Conversion, error) {
	query := `
		SELECT id, file_name, original_format, target_format, settings, status, created_at, completed_at
		FROM conversions
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	var out []model.Conversion
	for rows.Next() {
		var conv model.Conversion
		var settingsJSON []byte
		var completedAt sql.NullTime

		if err := rows.Scan(
			&conv.ID,
			&conv.FileName,
			&conv.OriginalFormat,
			&conv.TargetFormat,
			&settingsJSON,
			&conv.Status,
			&conv.CreatedAt,
			&completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}

		if len(settingsJSON) > 0 {
			if err := json.Unmarshal(settingsJSON, &conv.Settings); err != nil {
				return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
			}
		}
		if completedAt.Valid {
			conv.CompletedAt = &completedAt.Time
		}

		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}
