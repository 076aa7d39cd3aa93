package rest

import (
	"net/url"
	"strconv"

	"github.com/restqlite/restqlite/pkg/auth"
	"github.com/restqlite/restqlite/pkg/policy"
	"github.com/restqlite/restqlite/pkg/schema"
)

// OwnershipColumn is the column that binds a row to the user who wrote
// it. Tables opt into ownership behavior by carrying this column and a
// bind_user / bind_user_read tag; no per-table code is involved.
const OwnershipColumn = "user_id"

type writeOp int

const (
	opCreate writeOp = iota
	opUpdate
	opDelete
)

// readScope is the outcome of authorizing a read: either the request is
// denied, or the result set is possibly constrained to the caller's own
// rows, or forced empty when the constraint cannot resolve.
type readScope struct {
	empty    bool
	pinOwner bool
	ownerID  int64
}

// authorizeRead applies login_required and bind_user_read to a read.
// Client-supplied ownership filters are untrusted: a value differing
// from the caller's id is rejected rather than silently replaced.
func authorizeRead(table schema.Table, tags policy.TagSet, caller *auth.User, rawFilters url.Values) (readScope, error) {
	if tags.Has(policy.TagLoginRequired) && caller == nil {
		return readScope{}, errUnauthorized("login required")
	}

	if !tags.Has(policy.TagBindUserRead) {
		return readScope{}, nil
	}

	// An anonymous caller, or a table without the ownership column,
	// has no resolvable owner filter: the caller sees nothing.
	if caller == nil || !table.HasColumn(OwnershipColumn) {
		return readScope{empty: true}, nil
	}

	if supplied := rawFilters.Get(OwnershipColumn); supplied != "" && !ownerValueMatches(supplied, caller.ID) {
		return readScope{}, errBadRequest("ownership filter does not match caller")
	}

	return readScope{pinOwner: true, ownerID: caller.ID}, nil
}

// authorizeWrite applies login_required and bind_user to a mutating
// request. For creates the ownership value is stamped server-side; for
// updates and deletes the existing row's owner must be the caller.
// existingOwner is the owner value of the addressed row, fetched before
// any mutation; it is ignored for creates.
func authorizeWrite(table schema.Table, tags policy.TagSet, caller *auth.User, op writeOp, patch Patch, existingOwner any) error {
	if tags.Has(policy.TagLoginRequired) && caller == nil {
		return errUnauthorized("login required")
	}

	if !tags.Has(policy.TagBindUser) || !table.HasColumn(OwnershipColumn) {
		return nil
	}

	if caller == nil {
		return errBadRequest("ownership cannot be bound for anonymous writes")
	}

	switch op {
	case opCreate, opUpdate:
		if supplied, ok := patch[OwnershipColumn]; ok && !ownerValueMatches(supplied, caller.ID) {
			return errUnauthorized("ownership value does not match caller")
		}
		if op == opUpdate {
			if !ownerValueMatches(existingOwner, caller.ID) {
				return errUnauthorized("row is owned by another user")
			}
		}
		patch[OwnershipColumn] = caller.ID
	case opDelete:
		if !ownerValueMatches(existingOwner, caller.ID) {
			return errUnauthorized("row is owned by another user")
		}
	}
	return nil
}

// ownerValueMatches compares an ownership value of whatever shape it
// arrived in (JSON number, query-string text, or a scanned db integer)
// against the caller's id.
func ownerValueMatches(value any, id int64) bool {
	switch v := value.(type) {
	case int64:
		return v == id
	case float64:
		return v == float64(id)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		return err == nil && parsed == id
	default:
		return false
	}
}
