package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenRepository persists refresh-token hashes and the hashes of minted
// access tokens (jwt_storage). Raw token values are never stored; the hash
// column holds the FNV-1a index reinterpreted as a signed 64-bit value so it
// fits a Postgres BIGINT.
type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) StoreRefreshToken(ctx context.Context, hash uint64, userID string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (token_hash, user_id, expiry_date)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (token_hash) DO UPDATE SET user_id = $2, expiry_date = $3`,
		int64(hash), userID, expiresAt)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// CheckToken reports whether a non-expired refresh token exists for exactly
// this (hash, user) pair. A hash belonging to a different user is
// indistinguishable from an unknown or expired one.
func (r *TokenRepository) CheckToken(ctx context.Context, hash uint64, userID string) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
		    SELECT 1 FROM refresh_tokens
		    WHERE token_hash = $1 AND user_id = $2 AND expiry_date > now()
		 )`, int64(hash), userID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check refresh token: %w", err)
	}
	return found, nil
}

// DeleteRefreshToken is idempotent; deleting an unknown hash is not an error.
func (r *TokenRepository) DeleteRefreshToken(ctx context.Context, hash uint64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = $1`, int64(hash))
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// StoreJWTHash records a minted access token's hash so logout can blacklist
// the user's outstanding tokens.
func (r *TokenRepository) StoreJWTHash(ctx context.Context, hash uint64, userID string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO jwt_storage (jwt_hash, user_id, expiry_date)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (jwt_hash) DO NOTHING`,
		int64(hash), userID, expiresAt)
	if err != nil {
		return fmt.Errorf("store jwt hash: %w", err)
	}
	return nil
}

// BlacklistJWTHashes returns the hashes of the user's still-valid access
// tokens. Expired ones are omitted; revoking them would be meaningless.
func (r *TokenRepository) BlacklistJWTHashes(ctx context.Context, userID string) ([]uint64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT jwt_hash FROM jwt_storage
		 WHERE user_id = $1 AND expiry_date > now()`, userID)
	if err != nil {
		return nil, fmt.Errorf("blacklist jwt hashes: %w", err)
	}
	defer rows.Close()

	hashes := make([]uint64, 0)
	for rows.Next() {
		var h int64
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan jwt hash: %w", err)
		}
		hashes = append(hashes, uint64(h))
	}
	return hashes, rows.Err()
}

// CleanExpired drops expired refresh tokens and jwt_storage rows.
func (r *TokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	tagRefresh, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expiry_date <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired refresh tokens: %w", err)
	}

	tagJWT, err := r.pool.Exec(ctx,
		`DELETE FROM jwt_storage WHERE expiry_date <= now()`)
	if err != nil {
		return tagRefresh.RowsAffected(), fmt.Errorf("clean expired jwt hashes: %w", err)
	}

	return tagRefresh.RowsAffected() + tagJWT.RowsAffected(), nil
}
