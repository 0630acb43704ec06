package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sdraeger/ddalab-core/internal/ddamodel"
)

// ErrAnalysisNotFound is returned when an analysis id has no matching row.
var ErrAnalysisNotFound = errors.New("sqlite: analysis not found")

const sqliteTimeLayout = time.RFC3339Nano

// AnalysisRepo is the local node's analysis cache: one row per
// completed DDA analysis, MessagePack-encoded (the same codec
// internal/jobqueue and internal/snapshot use, so a cached analysis
// round-trips through all three without re-encoding).
type AnalysisRepo struct {
	db *DB
}

// NewAnalysisRepo wraps db for local analysis persistence.
func NewAnalysisRepo(db *DB) *AnalysisRepo {
	return &AnalysisRepo{db: db}
}

// SaveAnalysis implements internal/snapshot.AnalysisSaver: it upserts
// the decoded result under id, the entry point snapshot.Apply uses to
// persist a reattached archive's analyses locally.
func (r *AnalysisRepo) SaveAnalysis(id string, result ddamodel.AnalysisResult) error {
	payload, err := msgpack.Marshal(result)
	if err != nil {
		return fmt.Errorf("sqlite: marshaling analysis %q: %w", id, err)
	}
	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = r.db.Exec(`
		INSERT INTO analyses (id, owner_user_id, file_path, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			owner_user_id = excluded.owner_user_id,
			file_path = excluded.file_path,
			payload = excluded.payload
	`, id, result.OwnerUserID, result.FilePath, payload, createdAt.Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("sqlite: saving analysis %q: %w", id, err)
	}
	return nil
}

// GetAnalysis decodes a stored analysis by id.
func (r *AnalysisRepo) GetAnalysis(id string) (ddamodel.AnalysisResult, error) {
	var payload []byte
	err := r.db.QueryRow(`SELECT payload FROM analyses WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ddamodel.AnalysisResult{}, ErrAnalysisNotFound
	}
	if err != nil {
		return ddamodel.AnalysisResult{}, fmt.Errorf("sqlite: reading analysis %q: %w", id, err)
	}
	var result ddamodel.AnalysisResult
	if err := msgpack.Unmarshal(payload, &result); err != nil {
		return ddamodel.AnalysisResult{}, fmt.Errorf("sqlite: unmarshaling analysis %q: %w", id, err)
	}
	return result, nil
}

// ListByFilePath returns every analysis cached against filePath.
func (r *AnalysisRepo) ListByFilePath(filePath string) ([]ddamodel.AnalysisResult, error) {
	rows, err := r.db.Query(`SELECT payload FROM analyses WHERE file_path = ? ORDER BY created_at DESC`, filePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing analyses for %q: %w", filePath, err)
	}
	defer rows.Close()

	var out []ddamodel.AnalysisResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite: scanning analysis row: %w", err)
		}
		var result ddamodel.AnalysisResult
		if err := msgpack.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshaling analysis: %w", err)
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

// AnnotationRepo persists the per-file annotations.json payload.
type AnnotationRepo struct {
	db *DB
}

// NewAnnotationRepo wraps db for annotation persistence.
func NewAnnotationRepo(db *DB) *AnnotationRepo {
	return &AnnotationRepo{db: db}
}

// SaveAnnotations implements internal/snapshot.AnnotationSaver.
func (r *AnnotationRepo) SaveAnnotations(filePath string, annotations any) error {
	payload, err := json.Marshal(annotations)
	if err != nil {
		return fmt.Errorf("sqlite: marshaling annotations for %q: %w", filePath, err)
	}
	_, err = r.db.Exec(`
		INSERT INTO annotations (file_path, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (file_path) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, filePath, payload, time.Now().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("sqlite: saving annotations for %q: %w", filePath, err)
	}
	return nil
}

// GetAnnotations decodes the stored annotations for filePath into v.
func (r *AnnotationRepo) GetAnnotations(filePath string, v any) error {
	var payload []byte
	err := r.db.QueryRow(`SELECT payload FROM annotations WHERE file_path = ?`, filePath).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sqlite: reading annotations for %q: %w", filePath, err)
	}
	return json.Unmarshal(payload, v)
}
