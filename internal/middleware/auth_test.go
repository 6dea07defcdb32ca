package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-directory-admin/internal/token"
)

const guardTestSecret = "guard-test-secret"

func newGuard(t *testing.T) (*AuthMiddleware, *token.Codec, *token.RevocationRegistry) {
	t.Helper()
	codec, err := token.NewCodec(guardTestSecret, 24*time.Hour)
	require.NoError(t, err)
	registry := token.NewRevocationRegistry()
	return NewAuthMiddleware(codec, registry, "directory_admin"), codec, registry
}

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func bearerRequest(tokenString string) *http.Request {
	req := httptest.NewRequest("GET", "/api/users", nil)
	if tokenString != "" {
		req.Header.Set("Authorization", "Bearer "+tokenString)
	}
	return req
}

func TestRequireAdmin_AllowsAdminGroup(t *testing.T) {
	guard, codec, _ := newGuard(t)

	minted, err := codec.Mint("bob", []string{"directory_admin"})
	require.NoError(t, err)

	hit := false
	rec := httptest.NewRecorder()
	guard.RequireAdmin(okHandler(&hit)).ServeHTTP(rec, bearerRequest(minted))

	assert.True(t, hit)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin_MissingHeader(t *testing.T) {
	guard, _, _ := newGuard(t)

	hit := false
	rec := httptest.NewRecorder()
	guard.RequireAdmin(okHandler(&hit)).ServeHTTP(rec, bearerRequest(""))

	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing bearer token")
}

func TestRequireAdmin_InvalidJWT(t *testing.T) {
	guard, _, _ := newGuard(t)

	hit := false
	rec := httptest.NewRecorder()
	guard.RequireAdmin(okHandler(&hit)).ServeHTTP(rec, bearerRequest("not.a.jwt"))

	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid JWT")
}

func TestRequireAdmin_ExpiredJWT(t *testing.T) {
	guard, _, _ := newGuard(t)

	past := time.Now().UTC().Add(-48 * time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS512, token.Claims{
		Groups: []string{"directory_admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "bob",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(24 * time.Hour)),
		},
	}).SignedString([]byte(guardTestSecret))
	require.NoError(t, err)

	hit := false
	rec := httptest.NewRecorder()
	guard.RequireAdmin(okHandler(&hit)).ServeHTTP(rec, bearerRequest(expired))

	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Expired JWT")
}

func TestRequireAdmin_RevokedJWT(t *testing.T) {
	guard, codec, registry := newGuard(t)

	minted, err := codec.Mint("bob", []string{"directory_admin"})
	require.NoError(t, err)
	registry.Add(token.Hash(minted), time.Now().Add(24*time.Hour))

	hit := false
	rec := httptest.NewRecorder()
	guard.RequireAdmin(okHandler(&hit)).ServeHTTP(rec, bearerRequest(minted))

	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "JWT was logged out")
}

func TestRequireAdmin_InsufficientGroup(t *testing.T) {
	guard, codec, _ := newGuard(t)

	minted, err := codec.Mint("bob", []string{"readers"})
	require.NoError(t, err)

	hit := false
	rec := httptest.NewRecorder()
	guard.RequireAdmin(okHandler(&hit)).ServeHTTP(rec, bearerRequest(minted))

	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "User is not in group directory_admin")
}

func TestRequireAuth_AcceptsTokenWithoutAdminGroup(t *testing.T) {
	guard, codec, _ := newGuard(t)

	minted, err := codec.Mint("bob", []string{"readers"})
	require.NoError(t, err)

	var claims *token.Claims
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	guard.RequireAuth(handler).ServeHTTP(rec, bearerRequest(minted))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "bob", claims.Subject)
	assert.Equal(t, []string{"readers"}, claims.Groups)
}
