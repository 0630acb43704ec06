package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sdraeger/ddalab-core/internal/share"
)

// ShareRepo is the Postgres-backed implementation of
// internal/share.Store, spec §6's "shares (with JSONB access policy)".
type ShareRepo struct {
	db *DB
}

// NewShareRepo wraps db for share.Store use.
func NewShareRepo(db *DB) *ShareRepo {
	return &ShareRepo{db: db}
}

var _ share.Store = (*ShareRepo)(nil)

// accessPolicyJSON is the JSONB-serializable mirror of
// share.AccessPolicy (share.AccessPolicy has no json tags, since it is
// an in-memory domain type shared with MemStore).
type accessPolicyJSON struct {
	Type          string   `json:"type"`
	TeamID        string   `json:"team_id,omitempty"`
	UserIDs       []string `json:"user_ids,omitempty"`
	InstitutionID string   `json:"institution_id,omitempty"`
	Permissions   []string `json:"permissions"`
	ExpiresAt     time.Time `json:"expires_at"`
	MaxDownloads  *uint32  `json:"max_downloads,omitempty"`
}

func toPolicyJSON(p share.AccessPolicy) accessPolicyJSON {
	perms := make([]string, len(p.Permissions))
	for i, perm := range p.Permissions {
		perms[i] = string(perm)
	}
	return accessPolicyJSON{
		Type:          string(p.Type),
		TeamID:        p.TeamID,
		UserIDs:       p.UserIDs,
		InstitutionID: p.InstitutionID,
		Permissions:   perms,
		ExpiresAt:     p.ExpiresAt,
		MaxDownloads:  p.MaxDownloads,
	}
}

func (j accessPolicyJSON) toDomain() share.AccessPolicy {
	perms := make([]share.Permission, len(j.Permissions))
	for i, p := range j.Permissions {
		perms[i] = share.Permission(p)
	}
	return share.AccessPolicy{
		Type:          share.PolicyType(j.Type),
		TeamID:        j.TeamID,
		UserIDs:       j.UserIDs,
		InstitutionID: j.InstitutionID,
		Permissions:   perms,
		ExpiresAt:     j.ExpiresAt,
		MaxDownloads:  j.MaxDownloads,
	}
}

// Publish upserts a share row; conflicting tokens replace everything
// except created_at, mirroring share.MemStore's contract, and the
// owner check runs against the existing row before the upsert commits.
func (r *ShareRepo) Publish(ctx context.Context, callerUserID string, meta share.ShareMetadata) error {
	var existingOwner string
	err := r.db.Pool.QueryRow(ctx, `SELECT owner_user_id FROM shares WHERE token = $1`, meta.Token).Scan(&existingOwner)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// new share, fall through to insert
	case err != nil:
		return fmt.Errorf("postgres: checking existing share: %w", err)
	case existingOwner != callerUserID:
		return share.ErrForbidden
	}

	policyJSON, err := json.Marshal(toPolicyJSON(meta.AccessPolicy))
	if err != nil {
		return fmt.Errorf("postgres: marshaling access policy: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO shares (token, owner_user_id, content_type, content_ref, classification, access_policy, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (token) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			content_ref = EXCLUDED.content_ref,
			classification = EXCLUDED.classification,
			access_policy = EXCLUDED.access_policy,
			updated_at = now()
	`, meta.Token, callerUserID, string(meta.ContentType), meta.ContentID, string(meta.Classification), policyJSON)
	if err != nil {
		return fmt.Errorf("postgres: upserting share: %w", err)
	}
	return nil
}

func (r *ShareRepo) Get(ctx context.Context, token string) (share.ShareMetadata, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT token, owner_user_id, content_type, content_ref, classification, access_policy,
		       download_count, created_at
		FROM shares WHERE token = $1
	`, token)

	var m share.ShareMetadata
	var contentType, classification string
	var policyRaw []byte
	err := row.Scan(&m.Token, &m.OwnerUserID, &contentType, &m.ContentID, &classification,
		&policyRaw, &m.DownloadCount, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return share.ShareMetadata{}, share.ErrNotFound
	}
	if err != nil {
		return share.ShareMetadata{}, fmt.Errorf("postgres: reading share: %w", err)
	}

	var policyJSON accessPolicyJSON
	if err := json.Unmarshal(policyRaw, &policyJSON); err != nil {
		return share.ShareMetadata{}, fmt.Errorf("postgres: unmarshaling access policy: %w", err)
	}
	m.ContentType = share.ContentType(contentType)
	m.Classification = share.DataClassification(classification)
	m.AccessPolicy = policyJSON.toDomain()
	return m, nil
}

func (r *ShareRepo) Revoke(ctx context.Context, callerUserID, token string) error {
	var ownerUserID string
	err := r.db.Pool.QueryRow(ctx, `SELECT owner_user_id FROM shares WHERE token = $1`, token).Scan(&ownerUserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return share.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("postgres: checking share owner: %w", err)
	}
	if ownerUserID != callerUserID {
		return share.ErrForbidden
	}

	_, err = r.db.Pool.Exec(ctx, `DELETE FROM shares WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("postgres: revoking share: %w", err)
	}
	return nil
}

func (r *ShareRepo) ListUserShares(ctx context.Context, userID string, limit int) ([]share.ShareMetadata, error) {
	const maxListLimit = 1000
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT token, owner_user_id, content_type, content_ref, classification, access_policy,
		       download_count, created_at
		FROM shares
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing shares: %w", err)
	}
	defer rows.Close()

	var out []share.ShareMetadata
	for rows.Next() {
		var m share.ShareMetadata
		var contentType, classification string
		var policyRaw []byte
		if err := rows.Scan(&m.Token, &m.OwnerUserID, &contentType, &m.ContentID, &classification,
			&policyRaw, &m.DownloadCount, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning share row: %w", err)
		}
		var policyJSON accessPolicyJSON
		if err := json.Unmarshal(policyRaw, &policyJSON); err != nil {
			return nil, fmt.Errorf("postgres: unmarshaling access policy: %w", err)
		}
		m.ContentType = share.ContentType(contentType)
		m.Classification = share.DataClassification(classification)
		m.AccessPolicy = policyJSON.toDomain()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ShareRepo) IncrementDownloadCount(ctx context.Context, token string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE shares SET download_count = download_count + 1
		WHERE token = $1
	`, token)
	if err != nil {
		return fmt.Errorf("postgres: incrementing download count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return share.ErrNotFound
	}
	return nil
}
