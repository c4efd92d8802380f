package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingMiddlewareRecordsAuthenticatedUser(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tokens := auth.NewTokenManager(testSecret, time.Hour)

	handler := LoggingMiddleware(zap.New(core))(AuthMiddleware(tokens, zap.NewNop())(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", bearer(t, tokens, 17, domain.RoleUser))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("Request completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(17), entries[0].ContextMap()["user_id"])
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
}

func TestLoggingMiddlewareLevelFollowsStatus(t *testing.T) {
	cases := []struct {
		path   string
		status int
		level  zapcore.Level
	}{
		{"/api/products", http.StatusOK, zapcore.InfoLevel},
		{"/health", http.StatusOK, zapcore.DebugLevel},
		{"/api/orders", http.StatusUnauthorized, zapcore.WarnLevel},
		{"/health", http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}

	for _, tc := range cases {
		core, logs := observer.New(zapcore.DebugLevel)
		handler := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, tc.level, entries[0].Level, tc.path)
		_, hasUser := entries[0].ContextMap()["user_id"]
		assert.False(t, hasUser)
	}
}
