package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-directory-admin/internal/model"
	"go-directory-admin/internal/repository"
	"go-directory-admin/internal/token"
)

// Backend is the narrow contract toward the directory store. The session
// protocol depends only on this interface; the store owns its own
// consistency discipline.
type Backend interface {
	// Bind verifies a username/password pair.
	Bind(ctx context.Context, userID string, password string) error
	// GetUserGroups returns the current group display names for the user.
	GetUserGroups(ctx context.Context, userID string) ([]string, error)
	// CreateRefreshToken mints an opaque refresh token for the user and
	// returns its raw value plus the validity window. Only the hash is
	// persisted.
	CreateRefreshToken(ctx context.Context, userID string) (string, time.Duration, error)
	// CheckToken reports whether a non-expired refresh token with this hash
	// exists for this user.
	CheckToken(ctx context.Context, hash uint64, userID string) (bool, error)
	// DeleteRefreshToken revokes a refresh token by hash. Idempotent.
	DeleteRefreshToken(ctx context.Context, hash uint64) error
	// RecordJWTHash remembers a minted access token's hash and expiry so the
	// backend can later decide which tokens to blacklist.
	RecordJWTHash(ctx context.Context, hash uint64, userID string, expiresAt time.Time) error
	// BlacklistJWTs returns the hashes of the user's outstanding access
	// tokens, to be added to the revocation registry at logout.
	BlacklistJWTs(ctx context.Context, userID string) ([]uint64, error)
}

// SQLBackend implements Backend over the pgx repositories.
type SQLBackend struct {
	users      *repository.UserRepository
	tokens     *repository.TokenRepository
	groups     *repository.GroupRepository
	refreshTTL time.Duration
}

func NewSQLBackend(
	users *repository.UserRepository,
	groups *repository.GroupRepository,
	tokens *repository.TokenRepository,
	refreshTTL time.Duration,
) *SQLBackend {
	return &SQLBackend{users: users, groups: groups, tokens: tokens, refreshTTL: refreshTTL}
}

func (b *SQLBackend) Bind(ctx context.Context, userID string, password string) error {
	user, err := b.users.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.ErrInvalidCredentials
	}
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.ErrInvalidCredentials
	}
	return nil
}

func (b *SQLBackend) GetUserGroups(ctx context.Context, userID string) ([]string, error) {
	return b.groups.UserGroups(ctx, userID)
}

func (b *SQLBackend) CreateRefreshToken(ctx context.Context, userID string) (string, time.Duration, error) {
	// Hex encoding keeps the raw value free of the '+' cookie delimiter.
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", 0, fmt.Errorf("generate refresh token: %w", err)
	}
	rawToken := hex.EncodeToString(raw)

	expiresAt := time.Now().UTC().Add(b.refreshTTL)
	if err := b.tokens.StoreRefreshToken(ctx, token.Hash(rawToken), userID, expiresAt); err != nil {
		return "", 0, err
	}
	return rawToken, b.refreshTTL, nil
}

func (b *SQLBackend) CheckToken(ctx context.Context, hash uint64, userID string) (bool, error) {
	return b.tokens.CheckToken(ctx, hash, userID)
}

func (b *SQLBackend) DeleteRefreshToken(ctx context.Context, hash uint64) error {
	return b.tokens.DeleteRefreshToken(ctx, hash)
}

func (b *SQLBackend) RecordJWTHash(ctx context.Context, hash uint64, userID string, expiresAt time.Time) error {
	return b.tokens.StoreJWTHash(ctx, hash, userID, expiresAt)
}

func (b *SQLBackend) BlacklistJWTs(ctx context.Context, userID string) ([]uint64, error) {
	return b.tokens.BlacklistJWTHashes(ctx, userID)
}
