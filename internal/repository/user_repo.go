package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-directory-admin/internal/model"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, email, display_name, first_name, last_name, avatar,
		        creation_date, password_hash, totp_secret, mfa_type
		 FROM users WHERE user_id = $1`, strings.TrimSpace(userID)).
		Scan(&u.UserID, &u.Email, &u.DisplayName, &u.FirstName, &u.LastName, &u.Avatar,
			&u.CreationDate, &u.PasswordHash, &u.TotpSecret, &u.MfaType)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (user_id, email, display_name, first_name, last_name,
		                    avatar, creation_date, password_hash, totp_secret, mfa_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.UserID, u.Email, u.DisplayName, u.FirstName, u.LastName,
		u.Avatar, u.CreationDate, u.PasswordHash, u.TotpSecret, u.MfaType)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.UserSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, email, display_name, creation_date FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.UserSummary, 0)
	for rows.Next() {
		var u model.UserSummary
		if err := rows.Scan(&u.UserID, &u.Email, &u.DisplayName, &u.CreationDate); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
