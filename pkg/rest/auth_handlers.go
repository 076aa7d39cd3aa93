package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/restqlite/restqlite/pkg/auth"
	"github.com/restqlite/restqlite/pkg/httputil"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func parseCredentials(r *http.Request) (credentials, error) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		return creds, errBadRequest("invalid JSON body")
	}
	if creds.Username == "" || creds.Password == "" {
		return creds, errBadRequest("username and password are required")
	}
	return creds, nil
}

// handleSignup serves POST /signup. Signup is only available when the
// users table exists in the database.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	creds, err := parseCredentials(r)
	if err != nil {
		respondError(w, err)
		return
	}

	user, err := s.users.Create(r.Context(), creds.Username, creds.Password)
	switch {
	case errors.Is(err, auth.ErrUsersTableMissing):
		respondError(w, errNotFound("signup is not available"))
		return
	case errors.Is(err, auth.ErrUsernameTaken):
		respondError(w, errBadRequest("username already taken"))
		return
	case err != nil:
		s.logger.Error("signup failed", zap.Error(err))
		respondError(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, user)
}

// handleLogin serves POST /login, exchanging credentials for a bearer
// token. Bad credentials yield 401 with no hint whether the username
// exists.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, err := parseCredentials(r)
	if err != nil {
		respondError(w, err)
		return
	}

	enabled, err := s.users.Enabled(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if !enabled {
		respondError(w, errNotFound("login is not available"))
		return
	}

	user, err := s.users.Authenticate(r.Context(), creds.Username, creds.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(w, errUnauthorized("invalid credentials"))
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	token, err := s.signer.Issue(user.Username)
	if err != nil {
		s.logger.Error("token issuance failed", zap.Error(err))
		respondError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}
