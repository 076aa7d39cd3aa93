// Package policy reads per-table access-control tags from the reserved
// _table_settings table. Tags are read fresh on every request so that
// policy edits take effect immediately.
package policy

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/restqlite/restqlite/pkg/schema"
)

// Tag is one of the closed set of per-table access-control behaviors.
type Tag int

const (
	// TagLoginRequired denies all anonymous access to the table.
	TagLoginRequired Tag = iota
	// TagBindUser stamps writes with the caller's id and restricts
	// update/delete to rows the caller owns.
	TagBindUser
	// TagBindUserRead restricts reads to rows the caller owns.
	TagBindUserRead
)

func (t Tag) String() string {
	switch t {
	case TagLoginRequired:
		return "login_required"
	case TagBindUser:
		return "bind_user"
	case TagBindUserRead:
		return "bind_user_read"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// ParseTag maps a stored tag string to its Tag. Unknown strings are
// reported with ok=false and ignored by the store.
func ParseTag(s string) (Tag, bool) {
	switch s {
	case "login_required":
		return TagLoginRequired, true
	case "bind_user":
		return TagBindUser, true
	case "bind_user_read":
		return TagBindUserRead, true
	default:
		return 0, false
	}
}

// TagSet is the set of tags attached to one table.
type TagSet map[Tag]struct{}

func (s TagSet) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// Store reads table tags from the settings table.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Tags returns the tag set for a table. A missing settings table, or a
// table with no settings rows, means no restrictions.
func (s *Store) Tags(ctx context.Context, table string) (TagSet, error) {
	tags := make(TagSet)

	var exists string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, schema.SettingsTable).Scan(&exists)
	if err == sql.ErrNoRows {
		return tags, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check settings table: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT setting FROM `+schema.SettingsTable+` WHERE table_name = ?`, table)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		if tag, ok := ParseTag(raw); ok {
			tags[tag] = struct{}{}
		}
	}
	return tags, rows.Err()
}
