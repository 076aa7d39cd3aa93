// Package rest exposes every table of a SQLite database as a generic
// REST resource, with no per-table code.
//
// Each table is served at /table_name and supports GET, POST, PUT and
// DELETE. Valid operations are derived from the database's own catalog
// at request time: the table must exist, and every client-supplied key
// (query parameter or body field) must name one of its columns.
//
//	GET    /{table}?col=value   list rows, conjunctive equality filters
//	POST   /{table}             insert a row, generated id merged into the response
//	PUT    /{table}/{id}        update a row, response re-read from storage
//	DELETE /{table}/{id}        delete a row
//
// POST /signup and POST /login manage users in the reserved _users table
// and issue bearer tokens. Per-table tags in the reserved _table_settings
// table switch on access-control behavior:
//
//	Tag            | Behavior
//	---------------|------------------------------------------------
//	login_required | all anonymous requests are rejected
//	bind_user      | writes are stamped with, and restricted to, the caller's user_id
//	bind_user_read | reads only return rows whose user_id is the caller's
//
// Reserved tables (sqlite_* catalog tables, _users, _table_settings) are
// never reachable through the generic CRUD paths.
//
// Example usage:
//
//	db, err := sqlite.Open("data.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	server := rest.NewServer(db, rest.Options{SigningSecret: secret})
//	log.Fatal(server.Start(":8080"))
package rest
