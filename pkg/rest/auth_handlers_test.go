package rest

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restqlite/restqlite/internal/testutil"
)

func TestSignup(t *testing.T) {
	s, db := newTestServer(t)
	testutil.CreateUsersTable(t, db)

	t.Run("creates a user", func(t *testing.T) {
		w := do(t, s, "POST", "/signup", "", map[string]any{"username": "alice", "password": "password"})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp["username"])
		assert.NotNil(t, resp["id"])
	})

	t.Run("duplicate username", func(t *testing.T) {
		w := do(t, s, "POST", "/signup", "", map[string]any{"username": "alice", "password": "other"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := do(t, s, "POST", "/signup", "", map[string]any{"username": "bob"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSignupWithoutUsersTable(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, "POST", "/signup", "", map[string]any{"username": "alice", "password": "password"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogin(t *testing.T) {
	s, db := newTestServer(t)
	testutil.CreateUsersTable(t, db)

	w := do(t, s, "POST", "/signup", "", map[string]any{"username": "alice", "password": "password"})
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("issues a usable bearer token", func(t *testing.T) {
		w := do(t, s, "POST", "/login", "", map[string]any{"username": "alice", "password": "password"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "bearer", resp["token_type"])
		require.NotEmpty(t, resp["access_token"])

		subject, err := s.signer.Verify(resp["access_token"])
		require.NoError(t, err)
		assert.Equal(t, "alice", subject)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := do(t, s, "POST", "/login", "", map[string]any{"username": "alice", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown username", func(t *testing.T) {
		w := do(t, s, "POST", "/login", "", map[string]any{"username": "ghost", "password": "password"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLoginWithoutUsersTable(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, "POST", "/login", "", map[string]any{"username": "alice", "password": "password"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
