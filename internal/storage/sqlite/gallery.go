package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrGalleryEntryNotFound is returned when an entry id has no matching row.
var ErrGalleryEntryNotFound = errors.New("sqlite: gallery entry not found")

// GalleryEntry is a user-curated, titled reference to a completed
// analysis, optionally carrying a rendered thumbnail.
type GalleryEntry struct {
	ID         string
	AnalysisID string
	Title      string
	Thumbnail  []byte
	CreatedAt  time.Time
}

// GalleryRepo is the SQLite-backed gallery_entries table.
type GalleryRepo struct {
	db *DB
}

// NewGalleryRepo wraps db for gallery persistence.
func NewGalleryRepo(db *DB) *GalleryRepo {
	return &GalleryRepo{db: db}
}

// Add inserts a gallery entry referencing an existing analysis.
func (r *GalleryRepo) Add(entry GalleryEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.Exec(`
		INSERT INTO gallery_entries (id, analysis_id, title, thumbnail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, entry.AnalysisID, entry.Title, entry.Thumbnail, createdAt.Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("sqlite: adding gallery entry: %w", err)
	}
	return nil
}

// Remove deletes a gallery entry by id.
func (r *GalleryRepo) Remove(id string) error {
	_, err := r.db.Exec(`DELETE FROM gallery_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: removing gallery entry %q: %w", id, err)
	}
	return nil
}

// List returns every gallery entry, most recently added first.
func (r *GalleryRepo) List() ([]GalleryEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, analysis_id, title, thumbnail, created_at
		FROM gallery_entries ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing gallery entries: %w", err)
	}
	defer rows.Close()

	var out []GalleryEntry
	for rows.Next() {
		var e GalleryEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.AnalysisID, &e.Title, &e.Thumbnail, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning gallery entry: %w", err)
		}
		e.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parsing gallery entry timestamp: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get fetches a single gallery entry by id.
func (r *GalleryRepo) Get(id string) (GalleryEntry, error) {
	var e GalleryEntry
	var createdAt string
	err := r.db.QueryRow(`
		SELECT id, analysis_id, title, thumbnail, created_at
		FROM gallery_entries WHERE id = ?
	`, id).Scan(&e.ID, &e.AnalysisID, &e.Title, &e.Thumbnail, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return GalleryEntry{}, ErrGalleryEntryNotFound
	}
	if err != nil {
		return GalleryEntry{}, fmt.Errorf("sqlite: reading gallery entry %q: %w", id, err)
	}
	e.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt)
	if err != nil {
		return GalleryEntry{}, fmt.Errorf("sqlite: parsing gallery entry timestamp: %w", err)
	}
	return e, nil
}
