package sqlite

import (
	"fmt"
	"time"
)

// Notification is an in-app notification surfaced to a node's local
// user — share accepted, job finished, plugin error, and similar
// asynchronous events a client polls for.
type Notification struct {
	ID        string
	UserID    string
	Kind      string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// NotificationRepo is the SQLite-backed notifications table.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo wraps db for notification persistence.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Add inserts a new, unread notification.
func (r *NotificationRepo) Add(n Notification) error {
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.Exec(`
		INSERT INTO notifications (id, user_id, kind, message, read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, n.ID, n.UserID, n.Kind, n.Message, createdAt.Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("sqlite: adding notification: %w", err)
	}
	return nil
}

// MarkRead flags a notification as read.
func (r *NotificationRepo) MarkRead(id string) error {
	_, err := r.db.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: marking notification %q read: %w", id, err)
	}
	return nil
}

// ListForUser returns a user's notifications, most recent first, and
// optionally restricted to unread ones.
func (r *NotificationRepo) ListForUser(userID string, unreadOnly bool) ([]Notification, error) {
	query := `SELECT id, user_id, kind, message, read, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notifications for %q: %w", userID, err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var createdAt string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.Read, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning notification: %w", err)
		}
		n.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parsing notification timestamp: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
