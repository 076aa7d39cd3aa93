package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/restqlite/restqlite/pkg/httputil"
)

const RequestIDHeader = "X-Request-Id"

// RequestID middleware assigns every request a unique ID, stored in the
// context and echoed in the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, ok := r.Context().Value(httputil.RequestIDCtxKey).(string)
		if !ok || reqID == "" {
			reqID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), httputil.RequestIDCtxKey, reqID)
		w.Header().Set(RequestIDHeader, reqID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
