package service

import (
	"context"
	"strings"
	"time"

	"go-directory-admin/internal/model"
	"go-directory-admin/internal/token"
)

// AuthService drives the session protocol: authorize (login), refresh
// (silent re-issue) and logout (revoke). Cookie emission stays in the
// handlers; this layer works on raw values.
type AuthService struct {
	backend  Backend
	codec    *token.Codec
	registry *token.RevocationRegistry
}

func NewAuthService(backend Backend, codec *token.Codec, registry *token.RevocationRegistry) *AuthService {
	return &AuthService{backend: backend, codec: codec, registry: registry}
}

// AccessTTL reports the configured access-token lifetime.
func (s *AuthService) AccessTTL() time.Duration {
	return s.codec.AccessTTL()
}

// LoginResult carries everything the authorize handler needs to emit cookies.
type LoginResult struct {
	AccessToken   string
	AccessMaxAge  time.Duration
	RefreshCookie string
	RefreshMaxAge time.Duration
}

// Authorize verifies the bind, snapshots the user's groups, creates a refresh
// token and mints an access token. Any failure leaves no state dangling:
// refresh-token creation is a single atomic store operation.
func (s *AuthService) Authorize(ctx context.Context, name string, password string) (LoginResult, error) {
	name = strings.TrimSpace(name)
	// '+' delimits the refresh cookie's compound value, so it can never
	// appear in a username.
	if name == "" || strings.Contains(name, "+") {
		return LoginResult{}, model.ErrInvalidUsername
	}

	if err := s.backend.Bind(ctx, name, password); err != nil {
		return LoginResult{}, err
	}

	groups, err := s.backend.GetUserGroups(ctx, name)
	if err != nil {
		return LoginResult{}, err
	}

	rawRefresh, refreshMaxAge, err := s.backend.CreateRefreshToken(ctx, name)
	if err != nil {
		return LoginResult{}, err
	}

	access, err := s.mintAndRecord(ctx, name, groups)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		AccessToken:   access,
		AccessMaxAge:  s.codec.AccessTTL(),
		RefreshCookie: rawRefresh + "+" + name,
		RefreshMaxAge: refreshMaxAge,
	}, nil
}

// Refresh exchanges a valid refresh-token cookie for a fresh access token.
// This is the one path where the token's group snapshot can change without a
// full re-login; the refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshCookie string) (string, error) {
	hash, name, err := ParseRefreshCookie(refreshCookie)
	if err != nil {
		return "", err
	}

	found, err := s.backend.CheckToken(ctx, hash, name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", model.ErrInvalidRefreshToken
	}

	groups, err := s.backend.GetUserGroups(ctx, name)
	if err != nil {
		return "", err
	}

	return s.mintAndRecord(ctx, name, groups)
}

// Logout revokes the refresh token and blacklists the user's outstanding
// access tokens. A second logout with the same cookie fails with
// ErrInvalidRefreshToken because the store no longer knows the hash.
func (s *AuthService) Logout(ctx context.Context, refreshCookie string) (string, error) {
	hash, name, err := ParseRefreshCookie(refreshCookie)
	if err != nil {
		return "", err
	}

	found, err := s.backend.CheckToken(ctx, hash, name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", model.ErrInvalidRefreshToken
	}

	if err := s.backend.DeleteRefreshToken(ctx, hash); err != nil {
		return "", err
	}

	blacklisted, err := s.backend.BlacklistJWTs(ctx, name)
	if err != nil {
		return "", err
	}

	// now+TTL is an upper bound on any outstanding token's expiry, so the
	// registry never prunes an entry before the token it revokes dies.
	expiresAt := time.Now().UTC().Add(s.codec.AccessTTL())
	for _, jwtHash := range blacklisted {
		s.registry.Add(jwtHash, expiresAt)
	}

	return name, nil
}

func (s *AuthService) mintAndRecord(ctx context.Context, name string, groups []string) (string, error) {
	access, err := s.codec.Mint(name, groups)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().UTC().Add(s.codec.AccessTTL())
	if err := s.backend.RecordJWTHash(ctx, token.Hash(access), name, expiresAt); err != nil {
		return "", err
	}
	return access, nil
}

// ParseRefreshCookie splits a "<token>+<username>" value on the first '+'
// and returns the token hash with the owning username.
func ParseRefreshCookie(value string) (uint64, string, error) {
	if value == "" {
		return 0, "", model.ErrMissingRefreshToken
	}

	rawToken, name, ok := strings.Cut(value, "+")
	if !ok || rawToken == "" || name == "" {
		return 0, "", model.ErrInvalidRefreshToken
	}
	return token.Hash(rawToken), name, nil
}
