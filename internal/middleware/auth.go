package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"go-directory-admin/internal/token"
)

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type revocationChecker interface {
	Contains(hash uint64) bool
}

// AuthMiddleware validates the bearer token on protected routes: structure
// and signature first, then expiry, then the revocation registry, and for
// admin routes the group snapshot embedded in the token.
type AuthMiddleware struct {
	codec      *token.Codec
	revoked    revocationChecker
	adminGroup string
}

func NewAuthMiddleware(codec *token.Codec, revoked revocationChecker, adminGroup string) *AuthMiddleware {
	return &AuthMiddleware{codec: codec, revoked: revoked, adminGroup: adminGroup}
}

// RequireAuth accepts any valid, unexpired, non-revoked token.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.authenticate(w, r)
		if !ok {
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin additionally demands membership in the administrative group,
// as snapshotted at mint time.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.authenticate(w, r)
		if !ok {
			return
		}

		if !slices.Contains(claims.Groups, m.adminGroup) {
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "User is not in group "+m.adminGroup)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(w http.ResponseWriter, r *http.Request) (*token.Claims, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
		return nil, false
	}

	tokenString := strings.TrimSpace(header[7:])
	claims, err := m.codec.Verify(tokenString)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Expired JWT")
		} else {
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid JWT")
		}
		return nil, false
	}

	if m.revoked.Contains(token.Hash(tokenString)) {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "JWT was logged out")
		return nil, false
	}

	return claims, true
}

// ClaimsFromContext exposes the verified identity to downstream handlers.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*token.Claims)
	return claims, ok
}
