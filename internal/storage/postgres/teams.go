package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrTeamNotFound is returned when a team id has no matching row.
var ErrTeamNotFound = errors.New("postgres: team not found")

// Team is a named group used by the Team policy variant of
// share.AccessPolicy.
type Team struct {
	ID            string
	Name          string
	InstitutionID string
}

// TeamRepo is the Postgres-backed teams/team_members tables.
type TeamRepo struct {
	db *DB
}

// NewTeamRepo wraps db for team persistence.
func NewTeamRepo(db *DB) *TeamRepo {
	return &TeamRepo{db: db}
}

// CreateTeam inserts a new team.
func (r *TeamRepo) CreateTeam(ctx context.Context, id, name, institutionID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO teams (id, name, institution_id) VALUES ($1, $2, $3)
	`, id, name, institutionID)
	if err != nil {
		return fmt.Errorf("postgres: inserting team: %w", err)
	}
	return nil
}

// GetTeam fetches a team by id.
func (r *TeamRepo) GetTeam(ctx context.Context, id string) (Team, error) {
	var t Team
	row := r.db.Pool.QueryRow(ctx, `SELECT id, name, institution_id FROM teams WHERE id = $1`, id)
	if err := row.Scan(&t.ID, &t.Name, &t.InstitutionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Team{}, ErrTeamNotFound
		}
		return Team{}, fmt.Errorf("postgres: reading team: %w", err)
	}
	return t, nil
}

// AddMember adds userID to teamID with role.
func (r *TeamRepo) AddMember(ctx context.Context, teamID, userID, role string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`, teamID, userID, role)
	if err != nil {
		return fmt.Errorf("postgres: adding team member: %w", err)
	}
	return nil
}

// RemoveMember removes userID from teamID.
func (r *TeamRepo) RemoveMember(ctx context.Context, teamID, userID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("postgres: removing team member: %w", err)
	}
	return nil
}

// MemberUserIDs returns every user id belonging to teamID, the input
// internal/share.CheckAccess needs for its Team-policy membership
// check (it is given as requesterTeamIDs from the caller's side, but
// this is how a server handler resolves a team's full membership for
// e.g. listing who a share is visible to).
func (r *TeamRepo) MemberUserIDs(ctx context.Context, teamID string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT user_id FROM team_members WHERE team_id = $1`, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing team members: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("postgres: scanning team member: %w", err)
		}
		out = append(out, userID)
	}
	return out, rows.Err()
}

// UserTeamIDs returns every team id userID belongs to — the shape
// internal/share.CheckAccess's requesterTeamIDs parameter expects.
func (r *TeamRepo) UserTeamIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT team_id FROM team_members WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing user teams: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var teamID string
		if err := rows.Scan(&teamID); err != nil {
			return nil, fmt.Errorf("postgres: scanning user team: %w", err)
		}
		out = append(out, teamID)
	}
	return out, rows.Err()
}
