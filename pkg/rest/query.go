package rest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/restqlite/restqlite/pkg/schema"
)

// The builders below are the injection-safety boundary: table and column
// names are interpolated only after whitelist validation against the
// introspected column set, and every value is passed as a bound
// parameter. Filters are conjunctive equality predicates only.

// filter is one validated equality predicate.
type filter struct {
	column string
	value  any
}

func buildSelect(table schema.Table, filters []filter) (string, []any) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT * FROM ")
	query.WriteString(schema.QuoteIdentifier(table.Name))

	if len(filters) > 0 {
		query.WriteString(" WHERE ")
		clauses := make([]string, 0, len(filters))
		for _, f := range filters {
			clauses = append(clauses, schema.QuoteIdentifier(f.column)+" = ?")
			args = append(args, f.value)
		}
		query.WriteString(strings.Join(clauses, " AND "))
	}

	return query.String(), args
}

func buildInsert(table schema.Table, patch Patch) (string, []any, error) {
	columns := make([]string, 0, len(patch))
	placeholders := make([]string, 0, len(patch))
	args := make([]any, 0, len(patch))

	for _, col := range table.Columns {
		value, ok := patch[col.Name]
		if !ok {
			continue
		}
		columns = append(columns, schema.QuoteIdentifier(col.Name))
		placeholders = append(placeholders, "?")
		args = append(args, value)
	}
	if len(columns) == 0 {
		return "", nil, errBadRequest("no columns to insert")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.QuoteIdentifier(table.Name),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))
	return query, args, nil
}

func buildUpdate(table schema.Table, patch Patch, id int64) (string, []any, error) {
	setClauses := make([]string, 0, len(patch))
	args := make([]any, 0, len(patch)+1)

	for _, col := range table.Columns {
		value, ok := patch[col.Name]
		if !ok {
			continue
		}
		setClauses = append(setClauses, schema.QuoteIdentifier(col.Name)+" = ?")
		args = append(args, value)
	}
	if len(setClauses) == 0 {
		return "", nil, errBadRequest("no columns to update")
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
		schema.QuoteIdentifier(table.Name),
		strings.Join(setClauses, ", "))
	args = append(args, id)
	return query, args, nil
}

func buildDelete(table schema.Table, id int64) (string, []any) {
	return fmt.Sprintf("DELETE FROM %s WHERE id = ?", schema.QuoteIdentifier(table.Name)), []any{id}
}

// fetchRow reads a single row by integer primary key. A nil map means
// the row does not exist.
func (s *Server) fetchRow(ctx context.Context, table schema.Table, id int64) (map[string]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ?", schema.QuoteIdentifier(table.Name))
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("fetch row: %w", err)
	}
	defer rows.Close()

	results, err := rowsToMaps(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// rowsToMaps scans every row into a column-name-keyed map. TEXT values
// surface from the driver as []byte and are converted to strings so the
// JSON encoder doesn't base64 them.
func rowsToMaps(rows *sql.Rows) ([]map[string]any, error) {
	columnNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []map[string]any{}

	for rows.Next() {
		values := make([]any, len(columnNames))
		valuePointers := make([]any, len(columnNames))
		for i := range values {
			valuePointers[i] = &values[i]
		}

		if err := rows.Scan(valuePointers...); err != nil {
			return nil, err
		}

		rowMap := make(map[string]any, len(columnNames))
		for i, name := range columnNames {
			if b, ok := values[i].([]byte); ok {
				rowMap[name] = string(b)
				continue
			}
			rowMap[name] = values[i]
		}
		result = append(result, rowMap)
	}

	return result, rows.Err()
}
