// Package sqlite opens the application database. database/sql's pool
// provides the per-request connection leasing; each request checks a
// connection out for the duration of its statement and returns it on
// every exit path.
package sqlite

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (or creates) a SQLite database at path and applies the
// pragmas the server relies on. WAL may be unsupported for in-memory
// databases, so its error is ignored.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = "data.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	_, _ = db.Exec(`PRAGMA journal_mode=WAL`)
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
