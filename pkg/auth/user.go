// Package auth covers the identity side of the server: the reserved
// _users table, bearer-token issuance and verification, and resolving an
// incoming request to a caller identity.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/restqlite/restqlite/pkg/schema"
)

// User is a row of the reserved users table. The password hash never
// leaves this package.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	hash     string
}

var (
	// ErrUsersTableMissing means the _users table does not exist, i.e.
	// the auth subsystem is disabled for this database.
	ErrUsersTableMissing = errors.New("users table does not exist")
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords; callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken is returned by Create on a UNIQUE violation.
	ErrUsernameTaken = errors.New("username already taken")
)

// Store persists and authenticates users.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Enabled reports whether the users table exists.
func (s *Store) Enabled(ctx context.Context) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, schema.UsersTable).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check users table: %w", err)
	}
	return true, nil
}

// Create hashes the password with bcrypt and inserts the user.
func (s *Store) Create(ctx context.Context, username, password string) (*User, error) {
	if ok, err := s.Enabled(ctx); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrUsersTableMissing
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO `+schema.UsersTable+` (username, password) VALUES (?, ?)`, username, string(hash))
	if err != nil {
		// sqlite reports UNIQUE violations as a plain error; any
		// insert failure on this two-column statement is a conflict
		// or constraint problem attributable to the input.
		return nil, fmt.Errorf("%w: %v", ErrUsernameTaken, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read generated id: %w", err)
	}
	return &User{ID: id, Username: username}, nil
}

// Authenticate looks the user up by username and compares the password
// against the stored bcrypt hash.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.byUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Lookup resolves a username to its user record.
func (s *Store) Lookup(ctx context.Context, username string) (*User, error) {
	return s.byUsername(ctx, username)
}

func (s *Store) byUsername(ctx context.Context, username string) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password FROM `+schema.UsersTable+` WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.hash)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}
