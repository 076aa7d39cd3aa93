// Package schema provides introspection of a SQLite database's catalog:
// which tables exist and which columns they carry. Nothing is cached; the
// catalog is queried fresh for every lookup so that DDL applied between
// requests is visible on the next request.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Table describes one table as reported by the catalog.
type Table struct {
	Name       string   `json:"name"`
	Columns    []Column `json:"columns"`
	PrimaryKey string   `json:"primary_key,omitempty"`
}

// Column describes one column of a table.
type Column struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	NotNull      bool   `json:"not_null"`
	IsPrimaryKey bool   `json:"is_primary_key"`
}

// HasColumn reports whether the table has a column with the given name.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ColumnNames returns the column names in catalog order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Introspector answers schema questions against a live database handle.
type Introspector struct {
	db *sql.DB
}

func NewIntrospector(db *sql.DB) *Introspector {
	return &Introspector{db: db}
}

// TableExists reports whether a table with exactly this name exists.
// The name is passed as a bound parameter, so names containing SQL
// syntax simply fail to match anything.
func (in *Introspector) TableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := in.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query sqlite_master: %w", err)
	}
	return true, nil
}

// Load fetches the table's column set from the catalog. The caller must
// have verified existence with TableExists first; Load on an unknown
// table returns a Table with no columns.
//
// PRAGMA table_info does not support bound parameters, so the table name
// is quoted as an identifier. Load is only ever called with names that
// TableExists confirmed against the catalog.
func (in *Introspector) Load(ctx context.Context, name string) (Table, error) {
	t := Table{Name: name}

	rows, err := in.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, QuoteIdentifier(name)))
	if err != nil {
		return t, fmt.Errorf("table_info %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			col     Column
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.DataType, &notNull, &dflt, &pk); err != nil {
			return t, fmt.Errorf("scan table_info %s: %w", name, err)
		}
		col.NotNull = notNull != 0
		col.IsPrimaryKey = pk != 0
		if col.IsPrimaryKey && t.PrimaryKey == "" {
			t.PrimaryKey = col.Name
		}
		t.Columns = append(t.Columns, col)
	}
	return t, rows.Err()
}

// QuoteIdentifier quotes a name for interpolation into SQL as an
// identifier. Values never go through here; they are always bound.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
