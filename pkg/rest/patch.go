package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/restqlite/restqlite/pkg/schema"
)

// Patch is a validated flat column-to-scalar mapping from a request
// body. Values are opaque scalars (string, number, bool, null) passed
// through to storage as bound parameters.
type Patch map[string]any

// parsePatch decodes the request body into a Patch, rejecting anything
// that is not a flat map of scalar values.
func parsePatch(r *http.Request) (Patch, error) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, errBadRequest("invalid JSON body")
	}

	p := make(Patch, len(raw))
	for key, value := range raw {
		switch value.(type) {
		case string, float64, bool, nil:
			p[key] = value
		default:
			// nested objects and arrays have no scalar column
			// representation
			return nil, errBadRequest(fmt.Sprintf("value for %q is not a scalar", key))
		}
	}
	return p, nil
}

// validate rejects the whole patch if any key is not a column of the
// table. There is no partial application.
func (p Patch) validate(table schema.Table) error {
	for key := range p {
		if !table.HasColumn(key) {
			return errBadRequest(fmt.Sprintf("unknown column %q", key))
		}
	}
	return nil
}
