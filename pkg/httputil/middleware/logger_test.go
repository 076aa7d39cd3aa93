package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestResponseRecorderCapturesStatus(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	assert.Equal(t, http.StatusOK, rec.StatusCode, "default status should be 200")

	rec.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, rec.StatusCode)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestLoggerWithOptions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	mw := LoggerWithOptions(&LoggerOptions{Logger: logger})

	req := httptest.NewRequest("GET", "/missing", nil)
	w := httptest.NewRecorder()
	mw(handler).ServeHTTP(w, req)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "response", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
	assert.Equal(t, "GET", fields["method"])
}
