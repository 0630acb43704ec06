package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrPluginNotFound is returned when a plugin id has no matching row.
var ErrPluginNotFound = errors.New("sqlite: plugin not found")

// Plugin is a locally installed analysis plugin's registration record:
// enable/disable state and opaque configuration survive node restarts.
type Plugin struct {
	ID      string
	Name    string
	Version string
	Enabled bool
	Config  string
}

// PluginRepo is the SQLite-backed plugins table.
type PluginRepo struct {
	db *DB
}

// NewPluginRepo wraps db for plugin registration persistence.
func NewPluginRepo(db *DB) *PluginRepo {
	return &PluginRepo{db: db}
}

// Register upserts a plugin's registration row.
func (r *PluginRepo) Register(p Plugin) error {
	_, err := r.db.Exec(`
		INSERT INTO plugins (id, name, version, enabled, config)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, version = excluded.version,
			enabled = excluded.enabled, config = excluded.config
	`, p.ID, p.Name, p.Version, p.Enabled, p.Config)
	if err != nil {
		return fmt.Errorf("sqlite: registering plugin %q: %w", p.ID, err)
	}
	return nil
}

// SetEnabled toggles a plugin's enabled flag.
func (r *PluginRepo) SetEnabled(id string, enabled bool) error {
	res, err := r.db.Exec(`UPDATE plugins SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating plugin %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking plugin update %q: %w", id, err)
	}
	if n == 0 {
		return ErrPluginNotFound
	}
	return nil
}

// List returns every registered plugin.
func (r *PluginRepo) List() ([]Plugin, error) {
	rows, err := r.db.Query(`SELECT id, name, version, enabled, config FROM plugins ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing plugins: %w", err)
	}
	defer rows.Close()

	var out []Plugin
	for rows.Next() {
		var p Plugin
		if err := rows.Scan(&p.ID, &p.Name, &p.Version, &p.Enabled, &p.Config); err != nil {
			return nil, fmt.Errorf("sqlite: scanning plugin: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get fetches a single plugin by id.
func (r *PluginRepo) Get(id string) (Plugin, error) {
	var p Plugin
	err := r.db.QueryRow(`SELECT id, name, version, enabled, config FROM plugins WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Version, &p.Enabled, &p.Config)
	if errors.Is(err, sql.ErrNoRows) {
		return Plugin{}, ErrPluginNotFound
	}
	if err != nil {
		return Plugin{}, fmt.Errorf("sqlite: reading plugin %q: %w", id, err)
	}
	return p, nil
}
