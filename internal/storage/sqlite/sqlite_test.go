package sqlite

import "testing"

// openTestDB opens an in-memory database for a single test. SetMaxOpenConns(1)
// in Open keeps every query on the same connection, so ":memory:" behaves as
// one persistent database for the life of the test rather than a fresh one
// per connection.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
