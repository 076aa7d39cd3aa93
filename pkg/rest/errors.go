package rest

import (
	"errors"
	"net/http"

	"github.com/restqlite/restqlite/pkg/httputil"
)

// apiError is a terminal, non-retryable request failure. The three kinds
// (not found, bad request, unauthorized) reflect request validity;
// storage failures are deliberately not part of this taxonomy and fall
// through to a generic 500.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func errNotFound(msg string) error {
	return &apiError{status: http.StatusNotFound, message: msg}
}

func errBadRequest(msg string) error {
	return &apiError{status: http.StatusBadRequest, message: msg}
}

func errUnauthorized(msg string) error {
	return &apiError{status: http.StatusUnauthorized, message: msg}
}

// respondError maps an error to an HTTP response: taxonomy errors carry
// their own status, anything else is a generic server error.
func respondError(w http.ResponseWriter, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		httputil.Error(w, apiErr.status, apiErr.message)
		return
	}
	httputil.Error(w, http.StatusInternalServerError, "internal server error")
}
