package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sdraeger/ddalab-core/internal/session"
)

// ErrDuplicateEmail is returned by CreateUser when email is already
// registered, spec §7's Conflict error kind (HTTP 409 at the handler).
var ErrDuplicateEmail = errors.New("postgres: email already registered")

// ErrUserNotFound is returned when a user id or email has no match.
var ErrUserNotFound = errors.New("postgres: user not found")

// ErrAccountSuspended is returned by Authenticate when the matched
// user's is_active flag is false, spec §6's 403 ACCOUNT_SUSPENDED.
var ErrAccountSuspended = errors.New("postgres: account suspended")

// User is the persisted row shape, spec §3 "User + Session".
type User struct {
	ID            string
	Email         string
	DisplayName   string
	InstitutionID string
	IsAdmin       bool
	IsActive      bool
	LastLoginAt   *time.Time
	CreatedAt     time.Time
}

// UserRepo is the Postgres-backed users table.
type UserRepo struct {
	db *DB
}

// NewUserRepo wraps db for user persistence.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser hashes password with Argon2id and inserts a new user row.
func (r *UserRepo) CreateUser(ctx context.Context, id, email, displayName, password, institutionID string) error {
	hash, err := session.HashPassword(password)
	if err != nil {
		return fmt.Errorf("postgres: hashing password: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, institution_id)
		VALUES ($1, $2, $3, $4, $5)
	`, id, email, displayName, hash, institutionID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("postgres: inserting user: %w", err)
	}
	return nil
}

// Authenticate verifies email/password and, on success, stamps
// last_login_at and returns the user record. Spec §6: 401 AUTH_FAILED
// for a bad credential, 403 ACCOUNT_SUSPENDED for a correct credential
// against a deactivated account.
func (r *UserRepo) Authenticate(ctx context.Context, email, password string) (User, error) {
	var u User
	var passwordHash string
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, institution_id, is_admin, is_active, last_login_at, created_at
		FROM users WHERE email = $1
	`, email)
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &passwordHash, &u.InstitutionID, &u.IsAdmin, &u.IsActive, &u.LastLoginAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("postgres: reading user: %w", err)
	}

	ok, err := session.VerifyPassword(password, passwordHash)
	if err != nil {
		return User{}, fmt.Errorf("postgres: verifying password: %w", err)
	}
	if !ok {
		return User{}, ErrUserNotFound
	}
	if !u.IsActive {
		return User{}, ErrAccountSuspended
	}

	if _, err := r.db.Pool.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, u.ID); err != nil {
		return User{}, fmt.Errorf("postgres: stamping last_login_at: %w", err)
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (User, error) {
	var u User
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, email, display_name, institution_id, is_admin, is_active, last_login_at, created_at
		FROM users WHERE id = $1
	`, id)
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.InstitutionID, &u.IsAdmin, &u.IsActive, &u.LastLoginAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("postgres: reading user: %w", err)
	}
	return u, nil
}

// ListUsers returns every user row ordered by creation time, for the
// admin CLI's "users list" subcommand.
func (r *UserRepo) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, email, display_name, institution_id, is_admin, is_active, last_login_at, created_at
		FROM users ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.InstitutionID, &u.IsAdmin, &u.IsActive, &u.LastLoginAt, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetActive flips is_active for the admin CLI's "users deactivate"
// subcommand (and its reactivation counterpart).
func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE users SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("postgres: updating user active state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
