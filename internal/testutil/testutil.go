// Package testutil provides shared fixtures for tests: in-memory SQLite
// databases and signed tokens.
package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/restqlite/restqlite/pkg/sqlite"
)

var dbSeq atomic.Int64

// OpenInMemoryDB opens a fresh in-memory SQLite database. A shared-cache
// name keeps the database alive across the pool's connections. The DB is
// closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	name := fmt.Sprintf("testdb%d", dbSeq.Add(1))
	db, err := sqlite.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// keep one connection open so the shared in-memory db survives
	db.SetMaxIdleConns(2)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Exec runs each statement, failing the test on error.
func Exec(t *testing.T, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

// CreateUsersTable creates the reserved users table.
func CreateUsersTable(t *testing.T, db *sql.DB) {
	t.Helper()
	Exec(t, db, `CREATE TABLE _users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL
	)`)
}

// CreateSettingsTable creates the reserved table-settings table and
// inserts the given (table, tag) pairs.
func CreateSettingsTable(t *testing.T, db *sql.DB, pairs ...[2]string) {
	t.Helper()
	Exec(t, db, `CREATE TABLE _table_settings (table_name TEXT NOT NULL, setting TEXT NOT NULL)`)
	for _, p := range pairs {
		if _, err := db.Exec(`INSERT INTO _table_settings (table_name, setting) VALUES (?, ?)`, p[0], p[1]); err != nil {
			t.Fatalf("insert setting: %v", err)
		}
	}
}

// SignToken returns an HS256 token with the given subject and lifetime,
// signed with the given secret.
func SignToken(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}
