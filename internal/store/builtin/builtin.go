// Package builtin reads the redirector table shipped with the application:
// a read-only sqlite database mapping well-known redirect sources to their
// resolved targets. The table is produced at build time and never written
// at runtime.
package builtin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

// Open opens the shipped database read-only.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open builtin cache: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("builtin cache unreadable at %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Get looks up a shipped redirect target by exact source URL.
// A miss is (_, false, nil).
func (s *Store) Get(ctx context.Context, url string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT target
FROM redirects
WHERE source = ?;
`, url)

	var target string
	if err := row.Scan(&target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to query builtin cache: %w", err)
	}
	return target, true, nil
}

// Count returns the number of shipped entries, for the infra endpoint.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM redirects;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count builtin cache: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
