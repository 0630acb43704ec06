package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrStreamingSessionNotFound is returned when a session id has no matching row.
var ErrStreamingSessionNotFound = errors.New("sqlite: streaming session not found")

// StreamingSession records the lifetime of one internal/streaming.Source
// attachment, so a node can report its streaming history after a
// source has disconnected and its in-memory internal/streaming.Controller
// state is gone.
type StreamingSession struct {
	ID             string
	SourceKind     string
	SourceEndpoint string
	StartedAt      time.Time
	StoppedAt      *time.Time
}

// StreamingRepo is the SQLite-backed streaming_sessions table.
type StreamingRepo struct {
	db *DB
}

// NewStreamingRepo wraps db for streaming session metadata persistence.
func NewStreamingRepo(db *DB) *StreamingRepo {
	return &StreamingRepo{db: db}
}

// Start records a new streaming session as begun.
func (r *StreamingRepo) Start(id, sourceKind, sourceEndpoint string, startedAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO streaming_sessions (id, source_kind, source_endpoint, started_at, stopped_at)
		VALUES (?, ?, ?, ?, NULL)
	`, id, sourceKind, sourceEndpoint, startedAt.Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("sqlite: starting streaming session: %w", err)
	}
	return nil
}

// Stop marks a streaming session as ended.
func (r *StreamingRepo) Stop(id string, stoppedAt time.Time) error {
	res, err := r.db.Exec(`
		UPDATE streaming_sessions SET stopped_at = ? WHERE id = ?
	`, stoppedAt.Format(sqliteTimeLayout), id)
	if err != nil {
		return fmt.Errorf("sqlite: stopping streaming session %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking streaming session stop %q: %w", id, err)
	}
	if n == 0 {
		return ErrStreamingSessionNotFound
	}
	return nil
}

// ListActive returns every streaming session with no stop time yet.
func (r *StreamingRepo) ListActive() ([]StreamingSession, error) {
	rows, err := r.db.Query(`
		SELECT id, source_kind, source_endpoint, started_at, stopped_at
		FROM streaming_sessions WHERE stopped_at IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing active streaming sessions: %w", err)
	}
	defer rows.Close()
	return scanStreamingSessions(rows)
}

// ListRecent returns the most recently started sessions, up to limit.
func (r *StreamingRepo) ListRecent(limit int) ([]StreamingSession, error) {
	rows, err := r.db.Query(`
		SELECT id, source_kind, source_endpoint, started_at, stopped_at
		FROM streaming_sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing streaming sessions: %w", err)
	}
	defer rows.Close()
	return scanStreamingSessions(rows)
}

func scanStreamingSessions(rows *sql.Rows) ([]StreamingSession, error) {
	var out []StreamingSession
	for rows.Next() {
		var s StreamingSession
		var startedAt string
		var stoppedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.SourceKind, &s.SourceEndpoint, &startedAt, &stoppedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning streaming session: %w", err)
		}
		parsedStart, err := time.Parse(sqliteTimeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parsing streaming session start time: %w", err)
		}
		s.StartedAt = parsedStart
		if stoppedAt.Valid {
			parsedStop, err := time.Parse(sqliteTimeLayout, stoppedAt.String)
			if err != nil {
				return nil, fmt.Errorf("sqlite: parsing streaming session stop time: %w", err)
			}
			s.StoppedAt = &parsedStop
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
