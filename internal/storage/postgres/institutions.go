package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sdraeger/ddalab-core/internal/share"
)

// InstitutionRepo is the Postgres-backed institutions table, spec §13
// supplement: per-institution HIPAA mode and federation policy, read
// by the access-control path (internal/share.CheckAccess) via Resolve.
type InstitutionRepo struct {
	db *DB
}

// NewInstitutionRepo wraps db for institution-config persistence.
func NewInstitutionRepo(db *DB) *InstitutionRepo {
	return &InstitutionRepo{db: db}
}

// CreateInstitution inserts a new institution row.
func (r *InstitutionRepo) CreateInstitution(ctx context.Context, cfg share.InstitutionConfig) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO institutions (id, name, hipaa_mode, default_share_expiry_days, allow_federation, federated_institutions)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, cfg.ID, cfg.Name, cfg.HIPAAMode, cfg.DefaultShareExpiryDays, cfg.AllowFederation, cfg.FederatedInstitutions)
	if err != nil {
		return fmt.Errorf("postgres: inserting institution: %w", err)
	}
	return nil
}

// GetConfig returns institutionID's access-control config. An
// institution with no row is treated as a permissive default (HIPAA
// mode off, no federation) rather than an error: institution
// provisioning is optional metadata layered on top of users/shares
// that already work without it.
func (r *InstitutionRepo) GetConfig(ctx context.Context, institutionID string) (share.InstitutionConfig, error) {
	if institutionID == "" {
		return share.InstitutionConfig{}, nil
	}

	var cfg share.InstitutionConfig
	var expiryDays int32
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, hipaa_mode, default_share_expiry_days, allow_federation, federated_institutions
		FROM institutions WHERE id = $1
	`, institutionID)
	err := row.Scan(&cfg.ID, &cfg.Name, &cfg.HIPAAMode, &expiryDays, &cfg.AllowFederation, &cfg.FederatedInstitutions)
	if errors.Is(err, pgx.ErrNoRows) {
		return share.InstitutionConfig{ID: institutionID}, nil
	}
	if err != nil {
		return share.InstitutionConfig{}, fmt.Errorf("postgres: reading institution: %w", err)
	}
	cfg.DefaultShareExpiryDays = uint32(expiryDays)
	return cfg, nil
}

// Directory implements share.Directory against the users, teams, and
// institutions tables, resolving the caller facts share.CheckAccess
// needs at the HTTP and broker boundaries.
type Directory struct {
	users        *UserRepo
	teams        *TeamRepo
	institutions *InstitutionRepo
}

// NewDirectory builds a Directory from the three repos it fans out to.
func NewDirectory(users *UserRepo, teams *TeamRepo, institutions *InstitutionRepo) *Directory {
	return &Directory{users: users, teams: teams, institutions: institutions}
}

// InstitutionOf returns userID's institution id.
func (d *Directory) InstitutionOf(ctx context.Context, userID string) (string, error) {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.InstitutionID, nil
}

// TeamsOf returns the team ids userID belongs to.
func (d *Directory) TeamsOf(ctx context.Context, userID string) ([]string, error) {
	return d.teams.UserTeamIDs(ctx, userID)
}

// InstitutionConfig returns institutionID's access-control config.
func (d *Directory) InstitutionConfig(ctx context.Context, institutionID string) (share.InstitutionConfig, error) {
	return d.institutions.GetConfig(ctx, institutionID)
}
