package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// AuditOutcome is the result recorded against an audited action.
type AuditOutcome string

const (
	AuditOutcomeAllowed AuditOutcome = "allowed"
	AuditOutcomeDenied  AuditOutcome = "denied"
)

// AuditEntry is one row of the audit log, spec §7: Unauthorized and
// Forbidden errors are audit-logged; NotFound is explicitly
// non-auditable for share probing (a 404 on a guessed share token must
// not itself become a discoverable signal).
type AuditEntry struct {
	ActorUserID  string
	Action       string
	ResourceType string
	ResourceID   string
	Outcome      AuditOutcome
	Detail       any
	CreatedAt    time.Time
}

// AuditRepo is the Postgres-backed audit_log table.
type AuditRepo struct {
	db *DB
}

// NewAuditRepo wraps db for audit logging.
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Record inserts one audit entry. Errors are deliberately the
// caller's to handle: audit logging is fire-and-forget at the HTTP
// middleware layer (spec §6), so a logging failure must never block
// or fail the request it is auditing — callers should log-and-continue
// rather than propagate.
func (r *AuditRepo) Record(ctx context.Context, entry AuditEntry) error {
	var detailJSON []byte
	if entry.Detail != nil {
		var err error
		detailJSON, err = json.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("postgres: marshaling audit detail: %w", err)
		}
	}

	var actorUserID *string
	if entry.ActorUserID != "" {
		actorUserID = &entry.ActorUserID
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO audit_log (actor_user_id, action, resource_type, resource_id, outcome, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, actorUserID, entry.Action, entry.ResourceType, entry.ResourceID, string(entry.Outcome), detailJSON)
	if err != nil {
		return fmt.Errorf("postgres: inserting audit entry: %w", err)
	}
	return nil
}

// ListByActor returns an actor's audit entries, most recent first.
func (r *AuditRepo) ListByActor(ctx context.Context, actorUserID string, limit int) ([]AuditEntry, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT actor_user_id, action, resource_type, resource_id, outcome, detail, created_at
		FROM audit_log WHERE actor_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, actorUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing audit entries: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var actor *string
		var outcome string
		var detailRaw []byte
		if err := rows.Scan(&actor, &e.Action, &e.ResourceType, &e.ResourceID, &outcome, &detailRaw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning audit entry: %w", err)
		}
		if actor != nil {
			e.ActorUserID = *actor
		}
		e.Outcome = AuditOutcome(outcome)
		if len(detailRaw) > 0 {
			var detail any
			if err := json.Unmarshal(detailRaw, &detail); err != nil {
				return nil, fmt.Errorf("postgres: unmarshaling audit detail: %w", err)
			}
			e.Detail = detail
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
