package schema

import "strings"

// Reserved table names store system metadata and are never reachable
// through the generic CRUD paths.
const (
	UsersTable    = "_users"
	SettingsTable = "_table_settings"
)

// Reserved reports whether the name is carved out of the generic CRUD
// namespace: the SQLite catalog tables (any sqlite_ prefix, which SQLite
// itself refuses to let user tables claim) and this system's own
// metadata tables.
func Reserved(name string) bool {
	if strings.HasPrefix(name, "sqlite_") {
		return true
	}
	switch name {
	case UsersTable, SettingsTable:
		return true
	}
	return false
}
