package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(method, "/"+pathSuffix, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "PATCH", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ExpiredTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("expired tokens are rejected with 401", prop.ForAll(
		func(role string) bool {
			tokenString := signToken(t, jwt.MapClaims{
				"user_id": uuid.NewString(),
				"role":    role,
				"exp":     time.Now().Add(-1 * time.Hour).Unix(),
			}, testSecret)

			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/user/profile", nil)
			req.Header.Set("Authorization", "Bearer "+tokenString)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.OneConstOf("buyer", "seller", "admin"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidTokensAllowProcessing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid tokens reach the handler with id and role on the context", prop.ForAll(
		func(role string) bool {
			userID := uuid.New()
			tokenString := signToken(t, jwt.MapClaims{
				"user_id": userID.String(),
				"role":    role,
				"exp":     time.Now().Add(time.Hour).Unix(),
			}, testSecret)

			var gotID uuid.UUID
			var gotRole string
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, _ = GetUserID(r.Context())
				gotRole, _ = GetUserRole(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/user/profile", nil)
			req.Header.Set("Authorization", "Bearer "+tokenString)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusOK && gotID == userID && gotRole == role
		},
		gen.OneConstOf("buyer", "seller", "admin"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	valid := jwt.MapClaims{"user_id": uuid.NewString(), "role": "buyer", "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name   string
		header string
	}{
		{"wrong scheme", "Token abc"},
		{"garbage", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + signToken(t, valid, "other-secret")},
		{"non uuid user id", "Bearer " + signToken(t, jwt.MapClaims{"user_id": "42", "role": "buyer"}, testSecret)},
		{"missing role", "Bearer " + signToken(t, jwt.MapClaims{"user_id": uuid.NewString()}, testSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest("GET", "/order/my-orders", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, called)
		})
	}
}
