// package prefs persists user preferences and playback state in sqlite,
// behind a namespaced key-value store.
package prefs

import (
	"context"
	"database/sql"
	"fmt"
)

// Store is namespaced key-value persistence. All writes are durable before
// the call returns.
type Store interface {
	Get(ctx context.Context, ns, key string) (string, bool, error)
	Set(ctx context.Context, ns, key, value string) error
	// SetMany writes all pairs in one transaction.
	SetMany(ctx context.Context, ns string, pairs map[string]string) error
	Delete(ctx context.Context, ns, key string) error
	// DeleteNamespace drops every key in a namespace.
	DeleteNamespace(ctx context.Context, ns string) error
}

// SQLiteStore implements Store on one sqlite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the backing table if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	const schema = `CREATE TABLE IF NOT EXISTS prefs (
		ns    TEXT NOT NULL,
		key   TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (ns, key)
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating prefs table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, ns, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM prefs WHERE ns = ? AND key = ?", ns, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, ns, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO prefs (ns, key, value) VALUES (?, ?, ?) ON CONFLICT (ns, key) DO UPDATE SET value = excluded.value",
		ns, key, value)
	return err
}

func (s *SQLiteStore) SetMany(ctx context.Context, ns string, pairs map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range pairs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO prefs (ns, key, value) VALUES (?, ?, ?) ON CONFLICT (ns, key) DO UPDATE SET value = excluded.value",
			ns, key, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, ns, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM prefs WHERE ns = ? AND key = ?", ns, key)
	return err
}

func (s *SQLiteStore) DeleteNamespace(ctx context.Context, ns string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM prefs WHERE ns = ?", ns)
	return err
}
