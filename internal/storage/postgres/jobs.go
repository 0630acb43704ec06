package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrJobNotFound is returned when a job id has no matching row.
var ErrJobNotFound = errors.New("postgres: job not found")

// JobRow is the persisted record of a submitted analysis job, spec §6
// "relational schema for ... jobs" — the durable counterpart to
// internal/jobqueue.Queue's in-memory bookkeeping, written once a job
// reaches a terminal state so job history survives a server restart.
type JobRow struct {
	ID          string
	OwnerUserID string
	Status      string
	Progress    int
	Message     string
	Error       *string
	OutputPath  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JobRepo is the Postgres-backed jobs table.
type JobRepo struct {
	db *DB
}

// NewJobRepo wraps db for job persistence.
func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

// Insert records a newly submitted job.
func (r *JobRepo) Insert(ctx context.Context, id, ownerUserID, status string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO jobs (id, owner_user_id, status) VALUES ($1, $2, $3)
	`, id, ownerUserID, status)
	if err != nil {
		return fmt.Errorf("postgres: inserting job: %w", err)
	}
	return nil
}

// UpdateStatus records a job's current status/progress/message, and
// optionally its terminal error or output path.
func (r *JobRepo) UpdateStatus(ctx context.Context, id, status string, progress int, message string, jobErr, outputPath *string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE jobs SET status = $2, progress = $3, message = $4, error = $5, output_path = $6, updated_at = now()
		WHERE id = $1
	`, id, status, progress, message, jobErr, outputPath)
	if err != nil {
		return fmt.Errorf("postgres: updating job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Get fetches a job by id.
func (r *JobRepo) Get(ctx context.Context, id string) (JobRow, error) {
	var j JobRow
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, owner_user_id, status, progress, message, error, output_path, created_at, updated_at
		FROM jobs WHERE id = $1
	`, id)
	err := row.Scan(&j.ID, &j.OwnerUserID, &j.Status, &j.Progress, &j.Message, &j.Error, &j.OutputPath, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return JobRow{}, ErrJobNotFound
	}
	if err != nil {
		return JobRow{}, fmt.Errorf("postgres: reading job: %w", err)
	}
	return j, nil
}

// ListByOwner returns a user's jobs, most recent first.
func (r *JobRepo) ListByOwner(ctx context.Context, ownerUserID string, limit int) ([]JobRow, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, owner_user_id, status, progress, message, error, output_path, created_at, updated_at
		FROM jobs WHERE owner_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing jobs: %w", err)
	}
	defer rows.Close()

	var out []JobRow
	for rows.Next() {
		var j JobRow
		if err := rows.Scan(&j.ID, &j.OwnerUserID, &j.Status, &j.Progress, &j.Message, &j.Error, &j.OutputPath, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning job row: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
