package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-directory-admin/internal/model"
)

type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// UserGroups returns the display names of every group the user belongs to.
func (r *GroupRepository) UserGroups(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT g.display_name
		 FROM groups g
		 JOIN memberships m ON m.group_id = g.group_id
		 WHERE m.user_id = $1
		 ORDER BY g.display_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("user groups: %w", err)
	}
	defer rows.Close()

	groups := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan group name: %w", err)
		}
		groups = append(groups, name)
	}
	return groups, rows.Err()
}

func (r *GroupRepository) FindByName(ctx context.Context, displayName string) (model.Group, error) {
	var g model.Group
	err := r.pool.QueryRow(ctx,
		`SELECT group_id, display_name FROM groups WHERE display_name = $1`, displayName).
		Scan(&g.GroupID, &g.DisplayName)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Group{}, model.ErrGroupNotFound
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("find group by name: %w", err)
	}
	return g, nil
}

func (r *GroupRepository) Create(ctx context.Context, displayName string) (model.Group, error) {
	var g model.Group
	err := r.pool.QueryRow(ctx,
		`INSERT INTO groups (display_name) VALUES ($1) RETURNING group_id, display_name`,
		displayName).Scan(&g.GroupID, &g.DisplayName)
	if err != nil {
		return model.Group{}, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

func (r *GroupRepository) AddMembership(ctx context.Context, userID string, groupID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO memberships (user_id, group_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, userID, groupID)
	if err != nil {
		return fmt.Errorf("add membership: %w", err)
	}
	return nil
}

func (r *GroupRepository) List(ctx context.Context) ([]model.Group, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT group_id, display_name FROM groups ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]model.Group, 0)
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.GroupID, &g.DisplayName); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
