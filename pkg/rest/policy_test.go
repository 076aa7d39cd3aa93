package rest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restqlite/restqlite/internal/testutil"
)

// newPolicyFixture builds a server with auth enabled, a notes table
// carrying an ownership column, and the given tags on it.
func newPolicyFixture(t *testing.T, tags ...string) (*Server, *sql.DB) {
	t.Helper()
	s, db := newTestServer(t)
	testutil.CreateUsersTable(t, db)
	pairs := make([][2]string, len(tags))
	for i, tag := range tags {
		pairs[i] = [2]string{"notes", tag}
	}
	testutil.CreateSettingsTable(t, db, pairs...)
	testutil.Exec(t, db,
		`CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, text TEXT, user_id INTEGER)`)
	return s, db
}

func dataRows(t *testing.T, body []byte) []map[string]any {
	t.Helper()
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Data
}

func TestLoginRequired(t *testing.T) {
	s, _ := newPolicyFixture(t, "login_required")
	_, token := signupAndLogin(t, s, "alice")

	t.Run("anonymous is denied", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(t, s, "GET", "/notes", "", nil).Code)
		assert.Equal(t, http.StatusUnauthorized, do(t, s, "POST", "/notes", "", map[string]any{"text": "x"}).Code)
	})

	t.Run("authenticated caller passes", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(t, s, "GET", "/notes", token, nil).Code)
		assert.Equal(t, http.StatusCreated, do(t, s, "POST", "/notes", token, map[string]any{"text": "x"}).Code)
	})

	t.Run("invalid token degrades to anonymous and is denied", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(t, s, "GET", "/notes", "garbage", nil).Code)
	})
}

func TestBindUserCreate(t *testing.T) {
	s, _ := newPolicyFixture(t, "bind_user")
	alice, aliceToken := signupAndLogin(t, s, "alice")
	bob, _ := signupAndLogin(t, s, "bob")

	t.Run("anonymous create is rejected", func(t *testing.T) {
		w := do(t, s, "POST", "/notes", "", map[string]any{"text": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("owner is stamped when absent", func(t *testing.T) {
		w := do(t, s, "POST", "/notes", aliceToken, map[string]any{"text": "mine"})
		require.Equal(t, http.StatusCreated, w.Code)

		var row map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &row))
		assert.EqualValues(t, alice.ID, row["user_id"])
	})

	t.Run("matching explicit owner is accepted", func(t *testing.T) {
		w := do(t, s, "POST", "/notes", aliceToken, map[string]any{"text": "mine", "user_id": alice.ID})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("foreign explicit owner is denied", func(t *testing.T) {
		w := do(t, s, "POST", "/notes", aliceToken, map[string]any{"text": "spoof", "user_id": bob.ID})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestBindUserUpdateDelete(t *testing.T) {
	s, db := newPolicyFixture(t, "bind_user")
	alice, aliceToken := signupAndLogin(t, s, "alice")
	_, bobToken := signupAndLogin(t, s, "bob")

	testutil.Exec(t, db,
		fmt.Sprintf(`INSERT INTO notes (text, user_id) VALUES ('alices note', %d)`, alice.ID))

	t.Run("owner can update", func(t *testing.T) {
		w := do(t, s, "PUT", "/notes/1", aliceToken, map[string]any{"text": "edited"})
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-owner cannot update", func(t *testing.T) {
		w := do(t, s, "PUT", "/notes/1", bobToken, map[string]any{"text": "hijack"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("anonymous cannot update", func(t *testing.T) {
		w := do(t, s, "PUT", "/notes/1", "", map[string]any{"text": "hijack"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-owner cannot delete", func(t *testing.T) {
		w := do(t, s, "DELETE", "/notes/1", bobToken, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("owner can delete", func(t *testing.T) {
		w := do(t, s, "DELETE", "/notes/1", aliceToken, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestBindUserRead(t *testing.T) {
	s, db := newPolicyFixture(t, "bind_user_read")
	alice, aliceToken := signupAndLogin(t, s, "alice")
	bob, bobToken := signupAndLogin(t, s, "bob")

	testutil.Exec(t, db,
		fmt.Sprintf(`INSERT INTO notes (text, user_id) VALUES ('alices', %d)`, alice.ID),
		fmt.Sprintf(`INSERT INTO notes (text, user_id) VALUES ('bobs', %d)`, bob.ID))

	t.Run("each caller sees only their own rows", func(t *testing.T) {
		w := do(t, s, "GET", "/notes", aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		rows := dataRows(t, w.Body.Bytes())
		require.Len(t, rows, 1)
		assert.Equal(t, "alices", rows[0]["text"])

		w = do(t, s, "GET", "/notes", bobToken, nil)
		rows = dataRows(t, w.Body.Bytes())
		require.Len(t, rows, 1)
		assert.Equal(t, "bobs", rows[0]["text"])
	})

	t.Run("anonymous sees nothing", func(t *testing.T) {
		w := do(t, s, "GET", "/notes", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, dataRows(t, w.Body.Bytes()))
	})

	t.Run("matching explicit owner filter is accepted", func(t *testing.T) {
		w := do(t, s, "GET", fmt.Sprintf("/notes?user_id=%d", alice.ID), aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, dataRows(t, w.Body.Bytes()), 1)
	})

	t.Run("foreign explicit owner filter is rejected", func(t *testing.T) {
		w := do(t, s, "GET", fmt.Sprintf("/notes?user_id=%d", bob.ID), aliceToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("table without ownership column yields nothing", func(t *testing.T) {
		testutil.Exec(t, db,
			`CREATE TABLE loose (id INTEGER PRIMARY KEY, text TEXT)`,
			`INSERT INTO loose (text) VALUES ('visible?')`,
			`INSERT INTO _table_settings (table_name, setting) VALUES ('loose', 'bind_user_read')`)

		w := do(t, s, "GET", "/loose", aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, dataRows(t, w.Body.Bytes()))
	})
}
