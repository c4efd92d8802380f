package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func bearer(t *testing.T, tokens *auth.TokenManager, userID int64, role domain.Role) string {
	t.Helper()
	token, err := tokens.Generate(&domain.User{ID: userID, Role: role})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(auth.NewTokenManager(testSecret, time.Hour), zap.NewNop())(okHandler())

			req := httptest.NewRequest(method, "/api/orders/"+pathSuffix, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ExpiredTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("expired tokens are rejected with 401", prop.ForAll(
		func(userID int64, role string) bool {
			expired := auth.NewTokenManager(testSecret, -time.Hour)
			handler := AuthMiddleware(auth.NewTokenManager(testSecret, time.Hour), zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/api/orders", nil)
			req.Header.Set("Authorization", bearer(t, expired, userID, domain.Role(role)))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.Int64Range(1, 1<<40),
		gen.OneConstOf("user", "admin"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidTokensAllowProcessing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid tokens put the principal in the request context", prop.ForAll(
		func(userID int64, role string) bool {
			tokens := auth.NewTokenManager(testSecret, time.Hour)
			handlerCalled := false

			handler := AuthMiddleware(tokens, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true

				principal, ok := GetPrincipal(r.Context())
				if !ok || principal.UserID != userID || principal.Role != domain.Role(role) {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/api/orders", nil)
			req.Header.Set("Authorization", bearer(t, tokens, userID, domain.Role(role)))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return handlerCalled && w.Code == http.StatusOK
		},
		gen.Int64Range(1, 1<<40),
		gen.OneConstOf("user", "admin"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_InvalidTokenFormatRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("garbage tokens and missing Bearer prefixes are rejected", prop.ForAll(
		func(token string, withPrefix bool) bool {
			handler := AuthMiddleware(auth.NewTokenManager(testSecret, time.Hour), zap.NewNop())(okHandler())

			header := token
			if withPrefix {
				header = "Bearer " + token
			}
			req := httptest.NewRequest("GET", "/api/orders", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestTokenFromAnotherSecretIsRejected(t *testing.T) {
	handler := AuthMiddleware(auth.NewTokenManager(testSecret, time.Hour), zap.NewNop())(okHandler())

	req := httptest.NewRequest("GET", "/api/orders", nil)
	req.Header.Set("Authorization", bearer(t, auth.NewTokenManager("other-secret", time.Hour), 1, domain.RoleAdmin))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	handler := AuthMiddleware(tokens, zap.NewNop())(RequireAdmin(zap.NewNop())(okHandler()))

	tests := []struct {
		role domain.Role
		want int
	}{
		{domain.RoleAdmin, http.StatusOK},
		{domain.RoleUser, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/products", nil)
			req.Header.Set("Authorization", bearer(t, tokens, 5, tt.role))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}

	w := httptest.NewRecorder()
	RequireAdmin(zap.NewNop())(okHandler()).ServeHTTP(w, httptest.NewRequest("POST", "/api/products", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
